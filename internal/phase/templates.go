package phase

// The workflow is a fixed ordered sequence. Checklists are a lookup table
// keyed by phase number, not data-driven; changing the journey means changing
// this file.

type TemplateDeliverable struct {
	Type        string
	Name        string
	Description string
}

type Template struct {
	Number       int
	Name         string
	AgentCode    string
	AgentName    string
	AgentRole    string
	Deliverables []TemplateDeliverable
}

var templates = []Template{
	{
		Number:    1,
		Name:      "Research & Validation",
		AgentCode: "atlas",
		AgentName: "Atlas",
		AgentRole: "Market Research Analyst",
		Deliverables: []TemplateDeliverable{
			{Type: "market_research", Name: "Market Research Report", Description: "Target market size, segments and growth trends."},
			{Type: "competitor_analysis", Name: "Competitor Analysis", Description: "Direct and indirect competitors with positioning gaps."},
			{Type: "validation_summary", Name: "Validation Summary", Description: "Go/no-go recommendation with supporting evidence."},
		},
	},
	{
		Number:    2,
		Name:      "Brand & Identity",
		AgentCode: "iris",
		AgentName: "Iris",
		AgentRole: "Brand Designer",
		Deliverables: []TemplateDeliverable{
			{Type: "brand_identity", Name: "Brand Identity Kit", Description: "Name, voice, color palette and typography."},
			{Type: "logo_concepts", Name: "Logo Concepts", Description: "Three logo directions with usage notes."},
		},
	},
	{
		Number:    3,
		Name:      "Product Build",
		AgentCode: "forge",
		AgentName: "Forge",
		AgentRole: "Product Engineer",
		Deliverables: []TemplateDeliverable{
			{Type: "product_spec", Name: "Product Specification", Description: "Feature list, user flows and acceptance criteria."},
			{Type: "landing_page", Name: "Landing Page", Description: "Deployed landing page with signup capture."},
			{Type: "mvp_build", Name: "MVP Build", Description: "Working minimum viable product."},
		},
	},
	{
		Number:    4,
		Name:      "Marketing & Growth",
		AgentCode: "echo",
		AgentName: "Echo",
		AgentRole: "Growth Marketer",
		Deliverables: []TemplateDeliverable{
			{Type: "marketing_plan", Name: "Marketing Plan", Description: "Channels, budget split and 90-day calendar."},
			{Type: "content_pack", Name: "Launch Content Pack", Description: "Announcement copy, social posts and email sequence."},
		},
	},
	{
		Number:    5,
		Name:      "Launch",
		AgentCode: "nova",
		AgentName: "Nova",
		AgentRole: "Launch Coordinator",
		Deliverables: []TemplateDeliverable{
			{Type: "launch_checklist", Name: "Launch Checklist", Description: "Pre-flight checks across product, brand and marketing."},
			{Type: "launch_report", Name: "Launch Report", Description: "Day-one metrics and immediate followups."},
		},
	},
	{
		Number:    6,
		Name:      "Operations & Trading",
		AgentCode: "ledger",
		AgentName: "Ledger",
		AgentRole: "Portfolio Operator",
		Deliverables: []TemplateDeliverable{
			{Type: "trading_plan", Name: "Trading Plan", Description: "Strategy mix, capital allocation and risk limits."},
			{Type: "ops_runbook", Name: "Operations Runbook", Description: "Monitoring cadence, alert policy and escalation paths."},
		},
	},
}

// TemplateForPhase returns the checklist for phaseNumber, or nil past the end
// of the journey.
func TemplateForPhase(phaseNumber int) *Template {
	for i := range templates {
		if templates[i].Number == phaseNumber {
			return &templates[i]
		}
	}
	return nil
}

func TotalPhases() int {
	return len(templates)
}

func AllTemplates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}
