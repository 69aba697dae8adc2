package sim

import (
	"context"
	"sync"

	"github.com/okian/scit/internal/domain/device"
)

// Prompter answers dialogs from a script keyed by dialog ID. A dialog with
// no scripted answer left resolves to its cancel action.
type Prompter struct {
	mu      sync.Mutex
	answers map[string][]string
	shown   []device.Dialog
}

// NewPrompter creates a prompter with the given answers, in order, per
// dialog ID.
func NewPrompter(answers map[string][]string) *Prompter {
	p := &Prompter{answers: make(map[string][]string, len(answers))}
	for id, a := range answers {
		p.answers[id] = append([]string(nil), a...)
	}
	return p
}

// Answer appends a choice for dialogID.
func (p *Prompter) Answer(dialogID, actionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answers[dialogID] = append(p.answers[dialogID], actionID)
}

// Present records the dialog and pops the next scripted answer.
func (p *Prompter) Present(ctx context.Context, d device.Dialog) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown = append(p.shown, d)

	queue := p.answers[d.ID]
	if len(queue) == 0 {
		return d.CancelAction(), nil
	}
	choice := queue[0]
	p.answers[d.ID] = queue[1:]
	for _, a := range d.Actions {
		if a.ID == choice {
			return choice, nil
		}
	}
	return "", ErrUnknownAction
}

// Shown returns the dialogs presented so far.
func (p *Prompter) Shown() []device.Dialog {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]device.Dialog(nil), p.shown...)
}
