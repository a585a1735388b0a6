package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, nil))

	ctx, child := With(WithLogger(context.Background(), logger), "task", "css")
	FromContext(ctx).Info("hello")

	assert.NotSame(t, logger, child)
	assert.Contains(t, buf.String(), "task=css")
}

func TestFromContext_PanicsWithoutLogger(t *testing.T) {
	assert.PanicsWithValue(t, "ctxlog: logger missing from context", func() {
		FromContext(context.Background())
	})
}
