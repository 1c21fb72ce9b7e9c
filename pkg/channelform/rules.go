package channelform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/users"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// Directory is the user lookup the form depends on. *users.Client satisfies it.
type Directory interface {
	GetUser(ctx context.Context, id int) (users.User, error)
	FindByEmail(ctx context.Context, email string) ([]users.User, error)
}

// NotAdmin rejects the reserved admin address.
func NotAdmin(value any) error {
	if text, _ := value.(string); text == AdminEmail {
		return errors.New(MsgNotAdmin)
	}
	return nil
}

// NotBlackListed rejects addresses on the blacklisted domain.
func NotBlackListed(value any) error {
	if text, _ := value.(string); strings.HasSuffix(text, BlacklistedDomain) {
		return errors.New(MsgNotBlackListed)
	}
	return nil
}

// EmailAvailable returns the asynchronous availability check. An address is
// available when no directory record other than ownerID uses it, so the
// default user's own address passes. Lookup failures surface as the field
// error.
func EmailAvailable(dir Directory, ownerID int) validation.AsyncCheckFunc {
	return func(ctx context.Context, value any) error {
		email, _ := value.(string)
		if strings.TrimSpace(email) == "" {
			return nil
		}
		found, err := dir.FindByEmail(ctx, email)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("could not verify email: %w", err)
		}
		for _, user := range found {
			if user.ID != ownerID {
				return errors.New(MsgEmailTaken)
			}
		}
		return nil
	}
}

// Registry returns the named checks referenced by Definition.
func Registry(dir Directory, ownerID int) *validation.Registry {
	registry := validation.NewRegistry()
	registry.MustRegisterCheck(RuleNotAdmin, NotAdmin)
	registry.MustRegisterCheck(RuleNotBlackListed, NotBlackListed)
	registry.MustRegisterAsync(RuleEmailAvailable, EmailAvailable(dir, ownerID))
	return registry
}

// Defaults returns the loader that resolves the form defaults: the email comes
// from the directory record for userID and the date of birth from now().
func Defaults(dir Directory, userID int, now func() time.Time) form.DefaultsFunc {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) (map[string]any, error) {
		user, err := dir.GetUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("channelform: default user: %w", err)
		}
		return map[string]any{
			PathUsername:     "Batman",
			PathEmail:        user.Email,
			PathChannel:      "",
			"social":         map[string]any{"twitter": "", "facebook": ""},
			PathPhoneNumbers: []any{"", ""},
			PathPhNumbers:    []any{EmptyRow()},
			PathAge:          float64(0),
			PathDOB:          now(),
		}, nil
	}
}
