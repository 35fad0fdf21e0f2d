package sync

import "github.com/agentstation/utc"

// Phase names a stage of a sync job.
type Phase string

// Sync phases in execution order.
const (
	PhaseScrape Phase = "scrape"
	PhaseMatch  Phase = "match"
	PhaseEnrich Phase = "enrich"
	PhaseDedupe Phase = "dedupe"
	PhaseDone   Phase = "done"
)

// Progress is the live position of a running job.
type Progress struct {
	Phase     Phase     `json:"phase" yaml:"phase"`
	City      string    `json:"city,omitempty" yaml:"city,omitempty"`
	Source    string    `json:"source,omitempty" yaml:"source,omitempty"`
	Done      int       `json:"done" yaml:"done"`
	Total     int       `json:"total" yaml:"total"`
	Percent   float64   `json:"percent" yaml:"percent"`
	UpdatedAt utc.Time `json:"updated_at" yaml:"updated_at"`
}

// Step advances the progress by one completed step.
func (p *Progress) Step() {
	p.Done++
	p.recompute()
}

// Finish marks the progress complete.
func (p *Progress) Finish() {
	p.Phase = PhaseDone
	p.City, p.Source = "", ""
	p.Done = p.Total
	p.recompute()
}

func (p *Progress) recompute() {
	if p.Total <= 0 {
		p.Percent = 0
		return
	}
	p.Percent = float64(min(p.Done, p.Total)) * 100 / float64(p.Total)
}
