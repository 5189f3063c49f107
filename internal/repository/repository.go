package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"venture/internal/models"
)

// Repository is the single data-access surface shared by the phase worker,
// the review gate and the trading loop. The gorm implementation lives in
// repository/gorm; repository/memory carries an in-memory implementation for
// tests and local development.
type Repository interface {
	// Projects
	InsertProject(ctx context.Context, item *models.Project) error
	GetProjectByID(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context, params ListProjectsParams) ([]models.Project, error)
	ListAutonomousProjects(ctx context.Context, limit int) ([]models.Project, error)
	UpdateProjectPhase(ctx context.Context, id string, phaseNumber int, status string) error
	UpdateProjectFinancials(ctx context.Context, id string, capital, totalPnL decimal.Decimal, syncedAt time.Time) error
	SetProjectAutonomous(ctx context.Context, id string, enabled bool) error

	// Phases
	InsertPhases(ctx context.Context, items []models.Phase) error
	GetPhaseByID(ctx context.Context, id string) (*models.Phase, error)
	GetPhase(ctx context.Context, projectID string, phaseNumber int) (*models.Phase, error)
	ListPhasesByProject(ctx context.Context, projectID string) ([]models.Phase, error)
	// ClaimPhaseActivation flips a phase to active only if it is not already;
	// reports whether this call performed the activation.
	ClaimPhaseActivation(ctx context.Context, id string, startedAt time.Time) (bool, error)
	CompletePhase(ctx context.Context, id string, completedAt time.Time) error

	// Deliverables
	InsertDeliverable(ctx context.Context, item *models.Deliverable) error
	GetDeliverableByID(ctx context.Context, id string) (*models.Deliverable, error)
	ListDeliverablesByPhase(ctx context.Context, phaseID string, statuses []string) ([]models.Deliverable, error)
	ListDeliverablesAwaitingCEO(ctx context.Context, limit int) ([]models.Deliverable, error)
	UpdateDeliverableStatus(ctx context.Context, id string, status string) error
	AssignDeliverable(ctx context.Context, id string, agentID, agentName, status string) error
	SetDeliverableApproval(ctx context.Context, id string, party string, approved bool) error
	// RequestDeliverableRevision moves the deliverable to revision_requested,
	// clears both approval flags and replaces the feedback history blob.
	RequestDeliverableRevision(ctx context.Context, id string, feedback []byte) error

	// Agents
	UpsertAgent(ctx context.Context, item *models.Agent) error
	GetAgentByCode(ctx context.Context, code string) (*models.Agent, error)
	ListAgents(ctx context.Context) ([]models.Agent, error)

	// Activity log (append-only)
	InsertAgentActivity(ctx context.Context, item *models.AgentActivity) error
	ListAgentActivities(ctx context.Context, params ListActivitiesParams) ([]models.AgentActivity, error)

	// Trading strategies
	InsertStrategy(ctx context.Context, item *models.TradingStrategy) error
	GetStrategyByID(ctx context.Context, id string) (*models.TradingStrategy, error)
	ListStrategiesByProject(ctx context.Context, projectID string, activeOnly bool) ([]models.TradingStrategy, error)
	SetStrategyActive(ctx context.Context, id string, active bool) error
	// MarkStrategyExecuted stamps last_executed_at only if it still equals
	// prev (nil meaning never executed); reports whether the stamp landed.
	MarkStrategyExecuted(ctx context.Context, id string, prev *time.Time, now time.Time) (bool, error)
	IncrementStrategyTrades(ctx context.Context, id string) error

	// Executions (append-only)
	InsertExecution(ctx context.Context, item *models.TradingExecution) error
	ListExecutions(ctx context.Context, params ListExecutionsParams) ([]models.TradingExecution, error)

	// Risk controls
	GetRiskControls(ctx context.Context, projectID string) (*models.RiskControls, error)
	UpsertRiskControls(ctx context.Context, item *models.RiskControls) error
	// ActivateKillSwitch sets the switch only if it is currently clear;
	// reports whether this call tripped it.
	ActivateKillSwitch(ctx context.Context, projectID string, trippedAt time.Time) (bool, error)
	ClearKillSwitch(ctx context.Context, projectID string) error
	UpdatePeakEquity(ctx context.Context, projectID string, equity decimal.Decimal) error

	// Portfolio (one row per project, overwritten each sync)
	UpsertPortfolioSnapshot(ctx context.Context, item *models.PortfolioSnapshot) error
	GetPortfolioSnapshot(ctx context.Context, projectID string) (*models.PortfolioSnapshot, error)

	// Alerts
	InsertAlert(ctx context.Context, item *models.Alert) error
	GetAlertByID(ctx context.Context, id string) (*models.Alert, error)
	ListAlerts(ctx context.Context, params ListAlertsParams) ([]models.Alert, error)
	ListActiveAlerts(ctx context.Context, projectID string) ([]models.Alert, error)
	// DeactivateAlert flips is_active off only if it is still on; reports
	// whether this call fired the alert.
	DeactivateAlert(ctx context.Context, id string, triggeredAt time.Time) (bool, error)
	UpdateAlertEvalPrice(ctx context.Context, id string, price decimal.Decimal) error
	SetAlertActive(ctx context.Context, id string, active bool) error

	// Notifications
	InsertNotification(ctx context.Context, item *models.Notification) error
	ListNotifications(ctx context.Context, params ListNotificationsParams) ([]models.Notification, error)

	// System settings
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
}

type ListProjectsParams struct {
	Limit       int
	Offset      int
	OwnerUserID *string
	Status      *string
	Autonomous  *bool
	OrderBy     string
	Asc         *bool
}

type ListActivitiesParams struct {
	Limit     int
	Offset    int
	ProjectID *string
	AgentID   *string
	Status    *string
	Since     *time.Time
	OrderBy   string
	Asc       *bool
}

type ListExecutionsParams struct {
	Limit      int
	Offset     int
	ProjectID  *string
	StrategyID *string
	Symbol     *string
	Since      *time.Time
	OrderBy    string
	Asc        *bool
}

type ListAlertsParams struct {
	Limit     int
	Offset    int
	ProjectID *string
	UserID    *string
	Active    *bool
	OrderBy   string
	Asc       *bool
}

type ListNotificationsParams struct {
	Limit     int
	Offset    int
	UserID    *string
	ProjectID *string
	Category  *string
	Unread    *bool
	OrderBy   string
	Asc       *bool
}

type ListSystemSettingsParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}
