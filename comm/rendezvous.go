package comm

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tensormesh/tensormesh/store"
)

// PublishOrFetch performs the one-shot identity exchange for one scope.
// The root generates an opaque token and publishes it under key; every
// other member blocks on the store until the token appears. All members
// observe the identical token.
func PublishOrFetch(s store.Store, key string, root bool) (string, error) {
	if root {
		token := uuid.NewString()
		if err := s.Set(key, []byte(token)); err != nil {
			return "", errors.Wrapf(err, "publish %s", key)
		}
		return token, nil
	}
	v, err := s.Get(key)
	if err != nil {
		return "", errors.Wrapf(err, "fetch %s", key)
	}
	return string(v), nil
}
