package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/dbo/internal/catalog"
	"github.com/mesh-intelligence/dbo/pkg/dbo"
	"github.com/mesh-intelligence/dbo/pkg/types"
)

func newEntitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List the entity names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range catalog.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

type columnView struct {
	Attr   string `json:"attr"`
	Column string `json:"column"`
	Type   string `json:"type,omitempty"`
	Manual bool   `json:"manual,omitempty"`
}

type metaView struct {
	DSN        string            `json:"dsn"`
	Table      string            `json:"table"`
	Key        string            `json:"key"`
	Columns    []columnView      `json:"columns"`
	Statements map[string]string `json:"statements"`
}

func newMetaCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "meta <entity>",
		Short: "Show an entity's columns and expanded statements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := lookupEntity(args[0])
			if err != nil {
				return err
			}
			s, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			meta, err := s.store.MetaFor(t)
			if err != nil {
				return err
			}

			view := metaView{
				DSN:        meta.DSN(),
				Table:      meta.Table(),
				Key:        meta.Key(),
				Statements: make(map[string]string),
			}
			for _, c := range meta.Columns() {
				cv := columnView{Attr: c.Attr, Column: c.Name, Manual: c.Manual}
				if c.Type != nil {
					cv.Type = c.Type.Name
				}
				view.Columns = append(view.Columns, cv)
			}
			for _, name := range meta.StatementNames() {
				sql, err := meta.SQL(name)
				if err != nil {
					return err
				}
				view.Statements[name] = sql
			}
			return writeJSON(cmd, view)
		},
	}
}

func newGetCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <entity> <id>",
		Short: "Load an entity by id",
		Example: "  dbo get widget 1\n" +
			"  dbo get note 12",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := lookupEntity(args[0])
			if err != nil {
				return err
			}
			s, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			e, err := s.store.LoadType(cmd.Context(), t, args[1])
			if err != nil {
				return err
			}
			out, err := s.render(e)
			if err != nil {
				return err
			}
			return writeJSON(cmd, out)
		},
	}
}

func newSetCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <entity> [id] <json>",
		Short: "Create an entity, or update fields of an existing one",
		Long: "With an id, the JSON fields are merged into the stored entity and written\n" +
			"back. Without one, a new entity is created from the JSON fields.",
		Example: "  dbo set widget '{\"name\":\"Foo\"}'\n" +
			"  dbo set widget 1 '{\"name\":\"Bar\"}'",
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := lookupEntity(args[0])
			if err != nil {
				return err
			}
			var fields map[string]any
			if err := json.Unmarshal([]byte(args[len(args)-1]), &fields); err != nil {
				return userErrorf("parse JSON: %s", err)
			}

			s, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var e dbo.Entity
			if len(args) == 3 {
				e, err = s.update(cmd.Context(), t, args[1], fields)
			} else {
				e, err = s.create(cmd.Context(), t, fields)
			}
			if err != nil {
				return err
			}
			out, err := s.render(e)
			if err != nil {
				return err
			}
			return writeJSON(cmd, out)
		},
	}
}

func (s *session) create(ctx context.Context, t reflect.Type, fields map[string]any) (dbo.Entity, error) {
	e := reflect.New(t).Interface().(dbo.Entity)
	if err := s.store.Deserialize(ctx, e, fields, true); err != nil {
		return nil, err
	}
	return e, nil
}

// update merges fields over the stored values so omitted fields keep them.
func (s *session) update(ctx context.Context, t reflect.Type, id string, fields map[string]any) (dbo.Entity, error) {
	e, err := s.store.LoadType(ctx, t, id)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Serialize(e)
	if err != nil {
		return nil, err
	}
	merged := make(types.Data, len(data)+len(fields))
	for k, v := range data {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	if err := s.store.Deserialize(ctx, e, merged, true); err != nil {
		return nil, err
	}
	return e, nil
}

func newDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entity> <id>",
		Short: "Delete an entity by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := lookupEntity(args[0])
			if err != nil {
				return err
			}
			s, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			e, err := s.store.LoadType(cmd.Context(), t, args[1])
			if err != nil {
				return err
			}
			if err := s.store.Delete(cmd.Context(), e); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s/%s\n", args[0], args[1])
			return nil
		},
	}
}
