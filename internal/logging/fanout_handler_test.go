package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestNewFanoutHandlerNilHandlers(t *testing.T) {
	h := newFanoutHandler(nil, nil, nil)
	if _, ok := h.(NoopHandler); !ok {
		t.Errorf("expected NoopHandler for all nil handlers, got %T", h)
	}
}

func TestNewFanoutHandlerSingleHandlerUnwrapped(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)

	if h := newFanoutHandler(nil, inner, nil); h != inner {
		t.Error("expected single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerEnabled(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h1 := slog.NewJSONHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := slog.NewJSONHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelDebug})

	h := newFanoutHandler(h1, h2)

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected fanout enabled for debug while one handler accepts it")
	}
	if h.Enabled(context.Background(), slog.LevelDebug-4) {
		t.Error("expected fanout disabled below every handler's level")
	}
}

func TestFanoutHandlerHandleRespectsPerHandlerLevel(t *testing.T) {
	var infoBuf, warnBuf bytes.Buffer
	h1 := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := slog.NewJSONHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn})

	logger := slog.New(newFanoutHandler(h1, h2))
	logger.Info("request dispatched")

	if infoBuf.Len() == 0 {
		t.Error("expected output in the info-level sink")
	}
	if warnBuf.Len() != 0 {
		t.Error("warn-level sink received an info record")
	}
}

func TestFanoutHandlerDeliversToAllSinks(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h1 := slog.NewJSONHandler(&buf1, nil)
	h2 := slog.NewJSONHandler(&buf2, nil)

	logger := slog.New(newFanoutHandler(h1, h2))
	logger.Info("engine started", slog.String(FieldComponent, "sidecar"))

	if !bytes.Contains(buf1.Bytes(), []byte(`"component"`)) {
		t.Error("expected component attribute in first sink")
	}
	if !bytes.Contains(buf2.Bytes(), []byte(`"component"`)) {
		t.Error("expected component attribute in second sink")
	}
}

func TestFanoutHandlerWithAttrsPropagates(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))

	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String(FieldRequestID, "req-7")}))
	logger.Info("reply received")

	if !bytes.Contains(buf1.Bytes(), []byte(`"request_id"`)) {
		t.Error("expected request_id attribute in first sink")
	}
	if !bytes.Contains(buf2.Bytes(), []byte(`"request_id"`)) {
		t.Error("expected request_id attribute in second sink")
	}
}

func TestTeeLogger(t *testing.T) {
	var baseBuf, teeBuf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&baseBuf, nil))

	logger := TeeLogger(base, slog.NewJSONHandler(&teeBuf, nil))
	logger.Info("teed message")

	if baseBuf.Len() == 0 {
		t.Error("expected output in base buffer")
	}
	if teeBuf.Len() == 0 {
		t.Error("expected output in tee buffer")
	}
}

func TestTeeLoggerNilBase(t *testing.T) {
	var teeBuf bytes.Buffer

	logger := TeeLogger(nil, slog.NewJSONHandler(&teeBuf, nil))
	logger.Info("no base")

	if teeBuf.Len() == 0 {
		t.Error("expected output in tee buffer")
	}
}
