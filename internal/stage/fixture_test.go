package stage

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"

	"github.com/flarebyte/folio-mirror/internal/odoo/odootest"
)

var fixedNow = time.Date(2024, 3, 5, 10, 15, 0, 0, time.Local)

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDeps(dir Directory, fs billy.Filesystem) Deps {
	return Deps{
		Directory: dir,
		FS:        fs,
		Logger:    quietLogger(),
		Now:       func() time.Time { return fixedNow },
	}
}

func scenarioStore() *odootest.Store { return odootest.NewScenarioStore() }

// runAll executes the pipeline and stops at the first error.
func runAll(t *testing.T, in Envelope, deps Deps) (Envelope, error) {
	t.Helper()
	var err error
	for _, name := range Pipeline {
		in, err = Run(context.Background(), name, in, deps)
		if err != nil {
			return in, err
		}
	}
	return in, nil
}

func readFile(t *testing.T, fs billy.Filesystem, p string) string {
	t.Helper()
	b, err := util.ReadFile(fs, p)
	require.NoError(t, err)
	return string(b)
}

func newFS() billy.Filesystem { return memfs.New() }
