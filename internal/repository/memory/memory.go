// Package memoryrepo is an in-memory repository.Repository used by package
// tests and by local development without a Postgres instance. Semantics match
// the gorm store where the orchestration logic depends on them: insertion
// order on lists, conditional updates reporting whether they landed.
package memoryrepo

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"venture/internal/models"
	"venture/internal/repository"
)

type Store struct {
	mu sync.Mutex

	Projects      []models.Project
	Phases        []models.Phase
	Deliverables  []models.Deliverable
	Agents        []models.Agent
	Activities    []models.AgentActivity
	Strategies    []models.TradingStrategy
	Executions    []models.TradingExecution
	Risk          []models.RiskControls
	Snapshots     []models.PortfolioSnapshot
	Alerts        []models.Alert
	Notifications []models.Notification
	Settings      []models.SystemSetting
}

func New() *Store {
	return &Store{}
}

var _ repository.Repository = (*Store)(nil)

// --- Projects ---------------------------------------------------------------

func (s *Store) InsertProject(ctx context.Context, item *models.Project) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Projects = append(s.Projects, *item)
	return nil
}

func (s *Store) GetProjectByID(ctx context.Context, id string) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Projects {
		if s.Projects[i].ID == id {
			p := s.Projects[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (s *Store) ListProjects(ctx context.Context, params repository.ListProjectsParams) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Project
	for _, p := range s.Projects {
		if params.OwnerUserID != nil && p.OwnerUserID != *params.OwnerUserID {
			continue
		}
		if params.Status != nil && p.Status != *params.Status {
			continue
		}
		if params.Autonomous != nil && p.AutonomousMode != *params.Autonomous {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) ListAutonomousProjects(ctx context.Context, limit int) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Project
	for _, p := range s.Projects {
		if p.AutonomousMode && p.Status == "active" {
			out = append(out, p)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) UpdateProjectPhase(ctx context.Context, id string, phaseNumber int, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Projects {
		if s.Projects[i].ID == id {
			s.Projects[i].CurrentPhase = phaseNumber
			if strings.TrimSpace(status) != "" {
				s.Projects[i].Status = status
			}
			s.Projects[i].UpdatedAt = time.Now().UTC()
		}
	}
	return nil
}

func (s *Store) UpdateProjectFinancials(ctx context.Context, id string, capital, totalPnL decimal.Decimal, syncedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Projects {
		if s.Projects[i].ID == id {
			s.Projects[i].Capital = capital
			s.Projects[i].TotalPnL = totalPnL
			t := syncedAt
			s.Projects[i].LastSyncAt = &t
		}
	}
	return nil
}

func (s *Store) SetProjectAutonomous(ctx context.Context, id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Projects {
		if s.Projects[i].ID == id {
			s.Projects[i].AutonomousMode = enabled
		}
	}
	return nil
}

// --- Phases -----------------------------------------------------------------

func (s *Store) InsertPhases(ctx context.Context, items []models.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Phases = append(s.Phases, items...)
	return nil
}

func (s *Store) GetPhaseByID(ctx context.Context, id string) (*models.Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Phases {
		if s.Phases[i].ID == id {
			p := s.Phases[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (s *Store) GetPhase(ctx context.Context, projectID string, phaseNumber int) (*models.Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Phases {
		if s.Phases[i].ProjectID == projectID && s.Phases[i].PhaseNumber == phaseNumber {
			p := s.Phases[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (s *Store) ListPhasesByProject(ctx context.Context, projectID string) ([]models.Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Phase
	for _, p := range s.Phases {
		if p.ProjectID == projectID {
			out = append(out, p)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].PhaseNumber < out[i].PhaseNumber {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (s *Store) ClaimPhaseActivation(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Phases {
		if s.Phases[i].ID == id && s.Phases[i].Status != "active" {
			s.Phases[i].Status = "active"
			t := startedAt
			s.Phases[i].StartedAt = &t
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CompletePhase(ctx context.Context, id string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Phases {
		if s.Phases[i].ID == id {
			s.Phases[i].Status = "completed"
			t := completedAt
			s.Phases[i].CompletedAt = &t
		}
	}
	return nil
}

// --- Deliverables -----------------------------------------------------------

func (s *Store) InsertDeliverable(ctx context.Context, item *models.Deliverable) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deliverables = append(s.Deliverables, *item)
	return nil
}

func (s *Store) GetDeliverableByID(ctx context.Context, id string) (*models.Deliverable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Deliverables {
		if s.Deliverables[i].ID == id {
			d := s.Deliverables[i]
			return &d, nil
		}
	}
	return nil, nil
}

func (s *Store) ListDeliverablesByPhase(ctx context.Context, phaseID string, statuses []string) ([]models.Deliverable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[string]struct{}{}
	for _, st := range statuses {
		want[st] = struct{}{}
	}
	var out []models.Deliverable
	for _, d := range s.Deliverables {
		if d.PhaseID != phaseID {
			continue
		}
		if len(want) > 0 {
			if _, ok := want[d.Status]; !ok {
				continue
			}
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) ListDeliverablesAwaitingCEO(ctx context.Context, limit int) ([]models.Deliverable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Deliverable
	for _, d := range s.Deliverables {
		if d.Status == "review" && !d.CEOApproved {
			out = append(out, d)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) UpdateDeliverableStatus(ctx context.Context, id string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Deliverables {
		if s.Deliverables[i].ID == id {
			s.Deliverables[i].Status = status
		}
	}
	return nil
}

func (s *Store) AssignDeliverable(ctx context.Context, id string, agentID, agentName, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Deliverables {
		if s.Deliverables[i].ID == id {
			s.Deliverables[i].AgentID = agentID
			s.Deliverables[i].AgentName = agentName
			s.Deliverables[i].Status = status
		}
	}
	return nil
}

func (s *Store) SetDeliverableApproval(ctx context.Context, id string, party string, approved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Deliverables {
		if s.Deliverables[i].ID != id {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(party)) {
		case "ceo":
			s.Deliverables[i].CEOApproved = approved
		case "user":
			s.Deliverables[i].UserApproved = approved
		default:
			return errors.New("unknown approval party: " + party)
		}
	}
	return nil
}

func (s *Store) RequestDeliverableRevision(ctx context.Context, id string, feedback []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Deliverables {
		if s.Deliverables[i].ID == id {
			s.Deliverables[i].Status = "revision_requested"
			s.Deliverables[i].CEOApproved = false
			s.Deliverables[i].UserApproved = false
			s.Deliverables[i].Feedback = feedback
		}
	}
	return nil
}

// --- Agents -----------------------------------------------------------------

func (s *Store) UpsertAgent(ctx context.Context, item *models.Agent) error {
	if item == nil || strings.TrimSpace(item.Code) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Agents {
		if s.Agents[i].Code == item.Code {
			s.Agents[i].Name = item.Name
			s.Agents[i].Role = item.Role
			return nil
		}
	}
	s.Agents = append(s.Agents, *item)
	return nil
}

func (s *Store) GetAgentByCode(ctx context.Context, code string) (*models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Agents {
		if s.Agents[i].Code == strings.TrimSpace(code) {
			a := s.Agents[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (s *Store) ListAgents(ctx context.Context) ([]models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Agent, len(s.Agents))
	copy(out, s.Agents)
	return out, nil
}

// --- Activity log -----------------------------------------------------------

func (s *Store) InsertAgentActivity(ctx context.Context, item *models.AgentActivity) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = uint64(len(s.Activities) + 1)
	s.Activities = append(s.Activities, *item)
	return nil
}

func (s *Store) ListAgentActivities(ctx context.Context, params repository.ListActivitiesParams) ([]models.AgentActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AgentActivity
	for _, a := range s.Activities {
		if params.ProjectID != nil && a.ProjectID != *params.ProjectID {
			continue
		}
		if params.AgentID != nil && a.AgentID != *params.AgentID {
			continue
		}
		if params.Status != nil && a.Status != *params.Status {
			continue
		}
		out = append(out, a)
	}
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[len(out)-params.Limit:]
	}
	return out, nil
}

// --- Trading strategies -----------------------------------------------------

func (s *Store) InsertStrategy(ctx context.Context, item *models.TradingStrategy) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Strategies = append(s.Strategies, *item)
	return nil
}

func (s *Store) GetStrategyByID(ctx context.Context, id string) (*models.TradingStrategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Strategies {
		if s.Strategies[i].ID == id {
			st := s.Strategies[i]
			return &st, nil
		}
	}
	return nil, nil
}

func (s *Store) ListStrategiesByProject(ctx context.Context, projectID string, activeOnly bool) ([]models.TradingStrategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TradingStrategy
	for _, st := range s.Strategies {
		if st.ProjectID != projectID {
			continue
		}
		if activeOnly && !st.IsActive {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *Store) SetStrategyActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Strategies {
		if s.Strategies[i].ID == id {
			s.Strategies[i].IsActive = active
		}
	}
	return nil
}

func (s *Store) MarkStrategyExecuted(ctx context.Context, id string, prev *time.Time, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Strategies {
		if s.Strategies[i].ID != id {
			continue
		}
		cur := s.Strategies[i].LastExecutedAt
		if prev == nil && cur != nil {
			return false, nil
		}
		if prev != nil && (cur == nil || !cur.Equal(*prev)) {
			return false, nil
		}
		t := now
		s.Strategies[i].LastExecutedAt = &t
		return true, nil
	}
	return false, nil
}

func (s *Store) IncrementStrategyTrades(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Strategies {
		if s.Strategies[i].ID == id {
			s.Strategies[i].TotalTrades++
		}
	}
	return nil
}

// --- Executions -------------------------------------------------------------

func (s *Store) InsertExecution(ctx context.Context, item *models.TradingExecution) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = uint64(len(s.Executions) + 1)
	s.Executions = append(s.Executions, *item)
	return nil
}

func (s *Store) ListExecutions(ctx context.Context, params repository.ListExecutionsParams) ([]models.TradingExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TradingExecution
	for _, e := range s.Executions {
		if params.ProjectID != nil && e.ProjectID != *params.ProjectID {
			continue
		}
		if params.Symbol != nil && e.Symbol != *params.Symbol {
			continue
		}
		if params.StrategyID != nil && (e.StrategyID == nil || *e.StrategyID != *params.StrategyID) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// --- Risk controls ----------------------------------------------------------

func (s *Store) GetRiskControls(ctx context.Context, projectID string) (*models.RiskControls, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Risk {
		if s.Risk[i].ProjectID == projectID {
			rc := s.Risk[i]
			return &rc, nil
		}
	}
	return nil, nil
}

func (s *Store) UpsertRiskControls(ctx context.Context, item *models.RiskControls) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Risk {
		if s.Risk[i].ProjectID == item.ProjectID {
			s.Risk[i] = *item
			return nil
		}
	}
	s.Risk = append(s.Risk, *item)
	return nil
}

func (s *Store) ActivateKillSwitch(ctx context.Context, projectID string, trippedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Risk {
		if s.Risk[i].ProjectID == projectID && !s.Risk[i].KillSwitchActive {
			s.Risk[i].KillSwitchActive = true
			t := trippedAt
			s.Risk[i].TrippedAt = &t
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ClearKillSwitch(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Risk {
		if s.Risk[i].ProjectID == projectID {
			s.Risk[i].KillSwitchActive = false
			s.Risk[i].TrippedAt = nil
		}
	}
	return nil
}

func (s *Store) UpdatePeakEquity(ctx context.Context, projectID string, equity decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Risk {
		if s.Risk[i].ProjectID == projectID && s.Risk[i].PeakEquity.LessThan(equity) {
			s.Risk[i].PeakEquity = equity
		}
	}
	return nil
}

// --- Portfolio --------------------------------------------------------------

func (s *Store) UpsertPortfolioSnapshot(ctx context.Context, item *models.PortfolioSnapshot) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Snapshots {
		if s.Snapshots[i].ProjectID == item.ProjectID {
			s.Snapshots[i] = *item
			return nil
		}
	}
	s.Snapshots = append(s.Snapshots, *item)
	return nil
}

func (s *Store) GetPortfolioSnapshot(ctx context.Context, projectID string) (*models.PortfolioSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Snapshots {
		if s.Snapshots[i].ProjectID == projectID {
			snap := s.Snapshots[i]
			return &snap, nil
		}
	}
	return nil, nil
}

// --- Alerts -----------------------------------------------------------------

func (s *Store) InsertAlert(ctx context.Context, item *models.Alert) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Alerts = append(s.Alerts, *item)
	return nil
}

func (s *Store) GetAlertByID(ctx context.Context, id string) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Alerts {
		if s.Alerts[i].ID == id {
			a := s.Alerts[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (s *Store) ListAlerts(ctx context.Context, params repository.ListAlertsParams) ([]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Alert
	for _, a := range s.Alerts {
		if params.ProjectID != nil && a.ProjectID != *params.ProjectID {
			continue
		}
		if params.UserID != nil && a.UserID != *params.UserID {
			continue
		}
		if params.Active != nil && a.IsActive != *params.Active {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) ListActiveAlerts(ctx context.Context, projectID string) ([]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Alert
	for _, a := range s.Alerts {
		if a.ProjectID == projectID && a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) DeactivateAlert(ctx context.Context, id string, triggeredAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Alerts {
		if s.Alerts[i].ID == id && s.Alerts[i].IsActive {
			s.Alerts[i].IsActive = false
			t := triggeredAt
			s.Alerts[i].LastTriggeredAt = &t
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) UpdateAlertEvalPrice(ctx context.Context, id string, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Alerts {
		if s.Alerts[i].ID == id {
			p := price
			s.Alerts[i].LastEvalPrice = &p
		}
	}
	return nil
}

func (s *Store) SetAlertActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Alerts {
		if s.Alerts[i].ID == id {
			s.Alerts[i].IsActive = active
		}
	}
	return nil
}

// --- Notifications ----------------------------------------------------------

func (s *Store) InsertNotification(ctx context.Context, item *models.Notification) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = uint64(len(s.Notifications) + 1)
	s.Notifications = append(s.Notifications, *item)
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, params repository.ListNotificationsParams) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.Notifications {
		if params.UserID != nil && n.UserID != *params.UserID {
			continue
		}
		if params.ProjectID != nil && n.ProjectID != *params.ProjectID {
			continue
		}
		if params.Category != nil && n.Category != *params.Category {
			continue
		}
		if params.Unread != nil && *params.Unread && n.ReadAt != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// --- System settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if item == nil || strings.TrimSpace(item.Key) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Settings {
		if s.Settings[i].Key == item.Key {
			s.Settings[i].Value = item.Value
			s.Settings[i].Description = item.Description
			return nil
		}
	}
	s.Settings = append(s.Settings, *item)
	return nil
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Settings {
		if s.Settings[i].Key == strings.TrimSpace(key) {
			item := s.Settings[i]
			return &item, nil
		}
	}
	return nil, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SystemSetting
	for _, item := range s.Settings {
		if params.Prefix != nil && !strings.HasPrefix(item.Key, *params.Prefix) {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}
