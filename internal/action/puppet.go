package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/slok/tasklib/internal/model"
)

const (
	paramPuppetManifest = "puppet_manifest"
	paramPuppetModules  = "puppet_modules"
)

// PuppetAction applies a puppet manifest.
//
// It runs with --detailed-exitcodes so 2 (changes applied) is also a success.
type PuppetAction struct {
	commandAction
	modules string
	options string
}

// NewPuppetAction is the Factory of the puppet kind.
func NewPuppetAction(deps Dependencies, kind Kind, taskID string, params map[string]any) Action {
	return &PuppetAction{
		commandAction: commandAction{
			kind:         kind,
			taskID:       taskID,
			params:       params,
			executor:     deps.Executor,
			logger:       deps.Logger,
			successCodes: []int{0, 2},
		},
		modules: deps.PuppetModules,
		options: deps.PuppetOptions,
	}
}

func (p *PuppetAction) manifest() string {
	m, _ := p.params[paramPuppetManifest].(string)
	return m
}

func (p *PuppetAction) modulePath() string {
	if m, ok := p.params[paramPuppetModules].(string); ok && m != "" {
		return m
	}
	return p.modules
}

func (p *PuppetAction) Verify() error {
	if p.manifest() == "" {
		return fmt.Errorf("%s action: %q parameter is required: %w", p.kind, paramPuppetManifest, model.ErrNotValid)
	}
	if p.modulePath() == "" {
		return fmt.Errorf("%s action: module path is required: %w", p.kind, model.ErrNotValid)
	}
	return p.verify()
}

func (p *PuppetAction) command() string {
	parts := []string{"puppet", "apply", "--modulepath=" + p.modulePath()}
	if p.options != "" {
		parts = append(parts, p.options)
	}
	parts = append(parts, "--detailed-exitcodes", p.manifest())
	return strings.Join(parts, " ")
}

func (p *PuppetAction) Run(ctx context.Context) error {
	return p.run(ctx, p.command())
}
