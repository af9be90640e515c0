package service_test

import (
	"log/slog"
	"strconv"
)

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func strconvQuote(s string) string { return strconv.Quote(s) }

func ptr[T any](v T) *T { return &v }
