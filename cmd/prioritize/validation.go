package prioritize

import (
	"fmt"
	"net/mail"

	"github.com/poliacredita/qdigest/internal/config"
)

// validate checks the effective configuration for the prioritize command.
func validate(cfg *config.Config, o *RunOptions) error {
	if cfg == nil {
		return fmt.Errorf("configuration is not loaded")
	}
	if err := config.RequirePrioritization(cfg, !o.DryRun); err != nil {
		return err
	}
	if o.DryRun {
		return nil
	}
	for _, r := range cfg.Email.Recipients {
		if _, err := mail.ParseAddress(r); err != nil {
			return fmt.Errorf("invalid recipient %q: %w", r, err)
		}
	}
	return nil
}
