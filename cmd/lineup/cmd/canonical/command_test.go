package canonical

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lineup"
	"github.com/agentstation/lineup/internal/appcontext"
	"github.com/agentstation/lineup/internal/testutil"
)

func newMock(t *testing.T) *appcontext.Mock {
	t.Helper()
	client, err := lineup.New(testutil.DB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return &appcontext.Mock{
		ClientFunc: func(context.Context) (lineup.Client, error) { return client, nil },
		Format:     "json",
	}
}

func execute(t *testing.T, app AppContext, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCanonicalCommands(t *testing.T) {
	app := newMock(t)

	out, err := execute(t, app, "create", "venue", "--set", "name=Tresor", "--set", "city=Berlin")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Tresor"`)

	out, err = execute(t, app, "update", "venue", "1", "--set", "address=Köpenicker Str. 70")
	require.NoError(t, err)
	assert.Contains(t, out, "Köpenicker Str. 70")

	out, err = execute(t, app, "get", "venue", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"record"`)
	assert.Contains(t, out, "Tresor")

	out, err = execute(t, app, "list", "--type", "venues", "--city", "Berlin")
	require.NoError(t, err)
	assert.Contains(t, out, "Tresor")

	_, err = execute(t, app, "delete", "venue", "1")
	require.NoError(t, err)

	_, err = execute(t, app, "get", "venue", "1")
	assert.Error(t, err)
}

func TestCanonicalArgs(t *testing.T) {
	app := newMock(t)

	_, err := execute(t, app, "create", "venue")
	assert.Error(t, err, "--set is required")

	_, err = execute(t, app, "get", "venue", "first")
	assert.Error(t, err)

	_, err = execute(t, app, "list", "--type", "venue", "--state", "live")
	assert.Error(t, err)
}
