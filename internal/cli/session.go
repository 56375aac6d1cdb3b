package cli

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/dbo/internal/catalog"
	"github.com/mesh-intelligence/dbo/internal/sqldb"
	"github.com/mesh-intelligence/dbo/pkg/dbo"
)

// session is one open database and the store over it.
type session struct {
	db    *sqldb.DB
	store *dbo.Store
}

func (f *rootFlags) open(cmd *cobra.Command) (*session, error) {
	cfg, _, err := f.resolveConfig()
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	log.SetLevel(logrus.WarnLevel)
	if f.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	db, err := sqldb.Open(cmd.Context(), cfg, sqldb.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return &session{db: db, store: dbo.NewStore(db, dbo.WithLogger(log))}, nil
}

func (s *session) Close() error {
	return s.db.Close()
}

func lookupEntity(name string) (reflect.Type, error) {
	t, ok := catalog.Lookup(name)
	if !ok {
		return nil, userErrorf("unknown entity %q (valid: %s)", name, strings.Join(catalog.Names(), ", "))
	}
	return t, nil
}

// render returns the serialized entity with its key column filled in.
// Durations are written as seconds, the unit set accepts.
func (s *session) render(e dbo.Entity) (map[string]any, error) {
	meta, err := s.store.Meta(e)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Serialize(e)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(data)+1)
	for k, v := range data {
		if d, ok := v.(time.Duration); ok {
			v = int64(d / time.Second)
		}
		out[k] = v
	}
	out[meta.Key()] = dbo.IDOf(e)
	return out, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
