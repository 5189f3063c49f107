package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"venture/internal/models"
	"venture/internal/repository"
)

type Store struct {
	db *gorm.DB
}

var _ repository.Repository = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Projects ---------------------------------------------------------------

func (s *Store) InsertProject(ctx context.Context, item *models.Project) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetProjectByID(ctx context.Context, id string) (*models.Project, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Project
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListProjects(ctx context.Context, params repository.ListProjectsParams) ([]models.Project, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Project{})
	if params.OwnerUserID != nil && strings.TrimSpace(*params.OwnerUserID) != "" {
		query = query.Where("owner_user_id = ?", strings.TrimSpace(*params.OwnerUserID))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Autonomous != nil {
		query = query.Where("autonomous_mode = ?", *params.Autonomous)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.Project
	err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error
	return items, err
}

func (s *Store) ListAutonomousProjects(ctx context.Context, limit int) ([]models.Project, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Project
	err := s.db.WithContext(ctx).
		Where("autonomous_mode = ? AND status = ?", true, "active").
		Order("created_at asc").
		Limit(normalizeLimit(limit, 200)).
		Find(&items).Error
	return items, err
}

func (s *Store) UpdateProjectPhase(ctx context.Context, id string, phaseNumber int, status string) error {
	if s == nil || s.db == nil {
		return nil
	}
	updates := map[string]any{
		"current_phase": phaseNumber,
		"updated_at":    time.Now().UTC(),
	}
	if strings.TrimSpace(status) != "" {
		updates["status"] = strings.TrimSpace(status)
	}
	return s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Updates(updates).Error
}

func (s *Store) UpdateProjectFinancials(ctx context.Context, id string, capital, totalPnL decimal.Decimal, syncedAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Updates(map[string]any{
		"capital":      capital,
		"total_pnl":    totalPnL,
		"last_sync_at": syncedAt,
		"updated_at":   time.Now().UTC(),
	}).Error
}

func (s *Store) SetProjectAutonomous(ctx context.Context, id string, enabled bool) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Updates(map[string]any{
		"autonomous_mode": enabled,
		"updated_at":      time.Now().UTC(),
	}).Error
}

// --- Phases -----------------------------------------------------------------

func (s *Store) InsertPhases(ctx context.Context, items []models.Phase) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&items).Error
}

func (s *Store) GetPhaseByID(ctx context.Context, id string) (*models.Phase, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Phase
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetPhase(ctx context.Context, projectID string, phaseNumber int) (*models.Phase, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Phase
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND phase_number = ?", projectID, phaseNumber).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListPhasesByProject(ctx context.Context, projectID string) ([]models.Phase, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Phase
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("phase_number asc").
		Find(&items).Error
	return items, err
}

func (s *Store) ClaimPhaseActivation(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Phase{}).
		Where("id = ? AND status <> ?", id, "active").
		Updates(map[string]any{
			"status":     "active",
			"started_at": startedAt,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

func (s *Store) CompletePhase(ctx context.Context, id string, completedAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Phase{}).Where("id = ?", id).Updates(map[string]any{
		"status":       "completed",
		"completed_at": completedAt,
		"updated_at":   time.Now().UTC(),
	}).Error
}

// --- Deliverables -----------------------------------------------------------

func (s *Store) InsertDeliverable(ctx context.Context, item *models.Deliverable) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetDeliverableByID(ctx context.Context, id string) (*models.Deliverable, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Deliverable
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListDeliverablesByPhase(ctx context.Context, phaseID string, statuses []string) ([]models.Deliverable, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Where("phase_id = ?", phaseID)
	statuses = cleanStrings(statuses)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var items []models.Deliverable
	err := query.Order("created_at asc").Find(&items).Error
	return items, err
}

func (s *Store) ListDeliverablesAwaitingCEO(ctx context.Context, limit int) ([]models.Deliverable, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Deliverable
	err := s.db.WithContext(ctx).
		Where("status = ? AND ceo_approved = ?", "review", false).
		Order("updated_at asc").
		Limit(normalizeLimit(limit, 20)).
		Find(&items).Error
	return items, err
}

func (s *Store) UpdateDeliverableStatus(ctx context.Context, id string, status string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Deliverable{}).Where("id = ?", id).Updates(map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}).Error
}

func (s *Store) AssignDeliverable(ctx context.Context, id string, agentID, agentName, status string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Deliverable{}).Where("id = ?", id).Updates(map[string]any{
		"agent_id":   agentID,
		"agent_name": agentName,
		"status":     status,
		"updated_at": time.Now().UTC(),
	}).Error
}

func (s *Store) SetDeliverableApproval(ctx context.Context, id string, party string, approved bool) error {
	if s == nil || s.db == nil {
		return nil
	}
	column := ""
	switch strings.ToLower(strings.TrimSpace(party)) {
	case "ceo":
		column = "ceo_approved"
	case "user":
		column = "user_approved"
	default:
		return errors.New("unknown approval party: " + party)
	}
	return s.db.WithContext(ctx).Model(&models.Deliverable{}).Where("id = ?", id).Updates(map[string]any{
		column:       approved,
		"updated_at": time.Now().UTC(),
	}).Error
}

func (s *Store) RequestDeliverableRevision(ctx context.Context, id string, feedback []byte) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Deliverable{}).Where("id = ?", id).Updates(map[string]any{
		"status":        "revision_requested",
		"ceo_approved":  false,
		"user_approved": false,
		"feedback":      feedback,
		"updated_at":    time.Now().UTC(),
	}).Error
}

// --- Agents -----------------------------------------------------------------

func (s *Store) UpsertAgent(ctx context.Context, item *models.Agent) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Code) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"role",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetAgentByCode(ctx context.Context, code string) (*models.Agent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Agent
	err := s.db.WithContext(ctx).Where("code = ?", strings.TrimSpace(code)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListAgents(ctx context.Context) ([]models.Agent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Agent
	err := s.db.WithContext(ctx).Order("code asc").Find(&items).Error
	return items, err
}

// --- Activity log -----------------------------------------------------------

func (s *Store) InsertAgentActivity(ctx context.Context, item *models.AgentActivity) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListAgentActivities(ctx context.Context, params repository.ListActivitiesParams) ([]models.AgentActivity, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.AgentActivity{})
	if params.ProjectID != nil && strings.TrimSpace(*params.ProjectID) != "" {
		query = query.Where("project_id = ?", strings.TrimSpace(*params.ProjectID))
	}
	if params.AgentID != nil && strings.TrimSpace(*params.AgentID) != "" {
		query = query.Where("agent_id = ?", strings.TrimSpace(*params.AgentID))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.AgentActivity
	err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error
	return items, err
}

// --- Trading strategies -----------------------------------------------------

func (s *Store) InsertStrategy(ctx context.Context, item *models.TradingStrategy) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetStrategyByID(ctx context.Context, id string) (*models.TradingStrategy, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.TradingStrategy
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListStrategiesByProject(ctx context.Context, projectID string, activeOnly bool) ([]models.TradingStrategy, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Where("project_id = ?", projectID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var items []models.TradingStrategy
	err := query.Order("created_at asc").Find(&items).Error
	return items, err
}

func (s *Store) SetStrategyActive(ctx context.Context, id string, active bool) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.TradingStrategy{}).Where("id = ?", id).Updates(map[string]any{
		"is_active":  active,
		"updated_at": time.Now().UTC(),
	}).Error
}

func (s *Store) MarkStrategyExecuted(ctx context.Context, id string, prev *time.Time, now time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	query := s.db.WithContext(ctx).Model(&models.TradingStrategy{}).Where("id = ?", id)
	if prev == nil {
		query = query.Where("last_executed_at IS NULL")
	} else {
		query = query.Where("last_executed_at = ?", *prev)
	}
	res := query.Updates(map[string]any{
		"last_executed_at": now,
		"updated_at":       time.Now().UTC(),
	})
	return res.RowsAffected > 0, res.Error
}

func (s *Store) IncrementStrategyTrades(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.TradingStrategy{}).Where("id = ?", id).Updates(map[string]any{
		"total_trades": gorm.Expr("total_trades + 1"),
		"updated_at":   time.Now().UTC(),
	}).Error
}

// --- Executions -------------------------------------------------------------

func (s *Store) InsertExecution(ctx context.Context, item *models.TradingExecution) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListExecutions(ctx context.Context, params repository.ListExecutionsParams) ([]models.TradingExecution, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.TradingExecution{})
	if params.ProjectID != nil && strings.TrimSpace(*params.ProjectID) != "" {
		query = query.Where("project_id = ?", strings.TrimSpace(*params.ProjectID))
	}
	if params.StrategyID != nil && strings.TrimSpace(*params.StrategyID) != "" {
		query = query.Where("strategy_id = ?", strings.TrimSpace(*params.StrategyID))
	}
	if params.Symbol != nil && strings.TrimSpace(*params.Symbol) != "" {
		query = query.Where("symbol = ?", strings.TrimSpace(*params.Symbol))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("executed_at >= ?", *params.Since)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "executed_at")
	var items []models.TradingExecution
	err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error
	return items, err
}

// --- Risk controls ----------------------------------------------------------

func (s *Store) GetRiskControls(ctx context.Context, projectID string) (*models.RiskControls, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.RiskControls
	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertRiskControls(ctx context.Context, item *models.RiskControls) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"kill_switch_active",
			"max_drawdown_pct",
			"peak_equity",
			"tripped_at",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) ActivateKillSwitch(ctx context.Context, projectID string, trippedAt time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Model(&models.RiskControls{}).
		Where("project_id = ? AND kill_switch_active = ?", projectID, false).
		Updates(map[string]any{
			"kill_switch_active": true,
			"tripped_at":         trippedAt,
			"updated_at":         time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

func (s *Store) ClearKillSwitch(ctx context.Context, projectID string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.RiskControls{}).
		Where("project_id = ?", projectID).
		Updates(map[string]any{
			"kill_switch_active": false,
			"tripped_at":         nil,
			"updated_at":         time.Now().UTC(),
		}).Error
}

func (s *Store) UpdatePeakEquity(ctx context.Context, projectID string, equity decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.RiskControls{}).
		Where("project_id = ? AND peak_equity < ?", projectID, equity).
		Updates(map[string]any{
			"peak_equity": equity,
			"updated_at":  time.Now().UTC(),
		}).Error
}

// --- Portfolio --------------------------------------------------------------

func (s *Store) UpsertPortfolioSnapshot(ctx context.Context, item *models.PortfolioSnapshot) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"equity",
			"cash",
			"day_pnl",
			"unrealized_pnl",
			"positions",
			"synced_at",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetPortfolioSnapshot(ctx context.Context, projectID string) (*models.PortfolioSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PortfolioSnapshot
	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- Alerts -----------------------------------------------------------------

func (s *Store) InsertAlert(ctx context.Context, item *models.Alert) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetAlertByID(ctx context.Context, id string) (*models.Alert, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Alert
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListAlerts(ctx context.Context, params repository.ListAlertsParams) ([]models.Alert, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Alert{})
	if params.ProjectID != nil && strings.TrimSpace(*params.ProjectID) != "" {
		query = query.Where("project_id = ?", strings.TrimSpace(*params.ProjectID))
	}
	if params.UserID != nil && strings.TrimSpace(*params.UserID) != "" {
		query = query.Where("user_id = ?", strings.TrimSpace(*params.UserID))
	}
	if params.Active != nil {
		query = query.Where("is_active = ?", *params.Active)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.Alert
	err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error
	return items, err
}

func (s *Store) ListActiveAlerts(ctx context.Context, projectID string) ([]models.Alert, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Alert
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND is_active = ?", projectID, true).
		Order("created_at asc").
		Find(&items).Error
	return items, err
}

func (s *Store) DeactivateAlert(ctx context.Context, id string, triggeredAt time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Alert{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{
			"is_active":         false,
			"last_triggered_at": triggeredAt,
			"updated_at":        time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

func (s *Store) UpdateAlertEvalPrice(ctx context.Context, id string, price decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Alert{}).Where("id = ?", id).Updates(map[string]any{
		"last_eval_price": price,
		"updated_at":      time.Now().UTC(),
	}).Error
}

func (s *Store) SetAlertActive(ctx context.Context, id string, active bool) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Alert{}).Where("id = ?", id).Updates(map[string]any{
		"is_active":  active,
		"updated_at": time.Now().UTC(),
	}).Error
}

// --- Notifications ----------------------------------------------------------

func (s *Store) InsertNotification(ctx context.Context, item *models.Notification) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListNotifications(ctx context.Context, params repository.ListNotificationsParams) ([]models.Notification, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Notification{})
	if params.UserID != nil && strings.TrimSpace(*params.UserID) != "" {
		query = query.Where("user_id = ?", strings.TrimSpace(*params.UserID))
	}
	if params.ProjectID != nil && strings.TrimSpace(*params.ProjectID) != "" {
		query = query.Where("project_id = ?", strings.TrimSpace(*params.ProjectID))
	}
	if params.Category != nil && strings.TrimSpace(*params.Category) != "" {
		query = query.Where("category = ?", strings.TrimSpace(*params.Category))
	}
	if params.Unread != nil && *params.Unread {
		query = query.Where("read_at IS NULL")
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.Notification
	err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error
	return items, err
}

// --- System settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Key) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Where("key = ?", strings.TrimSpace(key)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		query = query.Where("key LIKE ?", strings.TrimSpace(*params.Prefix)+"%")
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "key")
	var items []models.SystemSetting
	err := query.Limit(normalizeLimit(params.Limit, 200)).Offset(normalizeOffset(params.Offset)).Find(&items).Error
	return items, err
}

// --- helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, raw := range items {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}
