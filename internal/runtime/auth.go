package runtime

import (
	"context"
	"log/slog"
	"os"

	"github.com/mbrt/gmailctl/cmd/gmailctl/localcred"
	gmailv1 "google.golang.org/api/gmail/v1"

	gc "github.com/joshsymonds/emailmanager/internal/gmail"
)

type Scope int

const (
	ScopeReadonly Scope = iota
	ScopeModify
)

// NewGmailClient authenticates against the credentials stored in cfgDir and
// returns the narrow client the engine consumes. Credential acquisition and
// refresh are localcred's problem, not ours.
func NewGmailClient(ctx context.Context, cfgDir string, scope Scope) (gc.Client, error) {
	var svc *gmailv1.Service
	var err error
	switch scope {
	case ScopeReadonly:
		svc, err = (localcred.Provider{}).ServiceWithScopes(ctx, cfgDir, gmailv1.GmailReadonlyScope)
	case ScopeModify:
		svc, err = (localcred.Provider{}).ServiceWithScopes(ctx, cfgDir, gmailv1.GmailModifyScope)
	default:
		panic("unknown scope")
	}
	if err != nil {
		return nil, err
	}
	return NewGoogleAPIClient(svc), nil
}

func DefaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
