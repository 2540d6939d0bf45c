package keyring

import (
	"context"

	"github.com/loykin/jirarun/internal/auth/common"
)

type Adapter struct{ C Config }

func (a Adapter) Name() string { return common.AuthTypeKeyring }
func (a Adapter) Resolve(_ context.Context) (common.Credentials, error) {
	return a.C.Credentials()
}
