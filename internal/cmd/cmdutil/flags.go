// Package cmdutil provides shared flags and argument parsing for lineup commands.
package cmdutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/lineup/internal/cmd/output"
	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/types"
)

// PageFlags holds pagination flags for list commands.
type PageFlags struct {
	Limit  int
	Offset int
	Search string
	City   string
}

// AddPageFlags adds pagination and search flags to a list command.
func AddPageFlags(cmd *cobra.Command) *PageFlags {
	flags := &PageFlags{}

	cmd.Flags().IntVarP(&flags.Limit, "limit", "l", 50,
		"Maximum number of results")
	cmd.Flags().IntVar(&flags.Offset, "offset", 0,
		"Number of results to skip")
	cmd.Flags().StringVar(&flags.Search, "search", "",
		"Search term matched against the label")
	cmd.Flags().StringVar(&flags.City, "city", "",
		"Filter by city")

	return flags
}

// Page returns the store page selected by the flags.
func (f *PageFlags) Page() store.Page {
	return store.Page{Limit: f.Limit, Offset: f.Offset}
}

// ActorFlags holds who is performing a curation operation.
type ActorFlags struct {
	Actor  string
	Reason string
}

// AddActorFlags adds --actor and --reason to a command.
func AddActorFlags(cmd *cobra.Command) *ActorFlags {
	flags := &ActorFlags{}

	cmd.Flags().StringVar(&flags.Actor, "actor", "",
		"Who performs the operation (default: $USER)")
	cmd.Flags().StringVar(&flags.Reason, "reason", "",
		"Free-text reason recorded with the operation")

	return flags
}

// Who returns the actor flag, falling back to env when unset.
func (f *ActorFlags) Who(env func(string) string) string {
	if f.Actor != "" {
		return f.Actor
	}
	if u := env("USER"); u != "" {
		return u
	}
	return "cli"
}

// ParseID parses a record id argument.
func ParseID(name, s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.NewValidationError(name, s, "must be a positive integer")
	}
	return uint(id), nil
}

// ParseIDs parses record id arguments. Each argument may hold a
// comma-separated list.
func ParseIDs(name string, args []string) ([]uint, error) {
	var ids []uint
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := ParseID(name, part)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ParseKind parses an entity type argument.
func ParseKind(s string) (types.EntityType, error) {
	return types.ParseEntityType(strings.ToLower(s))
}

// ParseState parses an event state argument. Case and dashes are ignored.
func ParseState(s string) (types.EventState, error) {
	st := types.EventState(strings.ToUpper(strings.ReplaceAll(s, "-", "_")))
	if !st.IsValid() {
		return "", errors.NewValidationError("state", s, "unknown event state")
	}
	return st, nil
}

// ParseValues parses field=value pairs for kind. An empty value clears the field.
func ParseValues(kind types.EntityType, pairs []string) (map[types.Field]string, error) {
	values := make(map[types.Field]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, errors.NewValidationError("set", p, "expected field=value")
		}
		f := types.Field(strings.TrimSpace(name))
		if !types.HasField(kind, f) {
			return nil, errors.NewValidationError("set", p, fmt.Sprintf("%s has no field %q", kind, f))
		}
		values[f] = value
	}
	return values, nil
}

// ParseFields parses field names for kind.
func ParseFields(kind types.EntityType, names []string) ([]types.Field, error) {
	fields := make([]types.Field, 0, len(names))
	for _, n := range names {
		f := types.Field(strings.TrimSpace(n))
		if !types.HasField(kind, f) {
			return nil, errors.NewValidationError("field", n, fmt.Sprintf("%s has no field %q", kind, f))
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// OptionalBool returns nil when the flag was not set.
func OptionalBool(cmd *cobra.Command, name string) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return nil
	}
	return &v
}

// Print writes data to the command's output in format. Table output uses
// the rows built by table; json and yaml encode data itself.
func Print(cmd *cobra.Command, format string, data any, table func() output.Data) error {
	f, err := output.ParseFormat(format)
	if err != nil {
		return err
	}
	return output.Print(cmd.OutOrStdout(), output.DetectFormat(string(f)), data, table)
}
