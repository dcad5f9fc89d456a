package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"uk.co.dudmesh.agora/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file:" + model.CreateID() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type fixture struct {
	username string
	domain   string
	email    string
	ip       string
	mutate   func(*model.Account, *model.User)
}

// seed creates accounts one second apart so listing order is predictable. A
// fixture without an email is a remote account without a user.
func seed(t *testing.T, s *Store, fixtures ...fixture) map[string]*model.Account {
	t.Helper()
	accounts := map[string]*model.Account{}
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, f := range fixtures {
		account := &model.Account{
			ID:          model.NewAccountID(),
			Username:    f.username,
			DisplayName: f.username,
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}
		if f.domain != "" {
			domain := f.domain
			account.Domain = &domain
		}
		var user *model.User
		if f.email != "" {
			user = &model.User{
				ID:        model.NewUserID(),
				CreatedAt: account.CreatedAt,
				Email:     f.email,
				Confirmed: true,
				Approved:  true,
			}
			if f.ip != "" {
				ip := f.ip
				user.CurrentSignInIP = &ip
			}
		}
		if f.mutate != nil {
			f.mutate(account, user)
		}
		require.NoError(t, s.CreateAccount(context.Background(), account, user))
		accounts[f.username] = account
	}
	return accounts
}
