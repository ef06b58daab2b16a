package log

import "log/slog"

func Action(name string) slog.Attr {
	return slog.String("action", name)
}

func ActionID(id string) slog.Attr {
	return slog.String("action_id", id)
}

func Queue(name string) slog.Attr {
	return slog.String("queue", name)
}

func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

func Kind[T interface{ String() string }](kind T) slog.Attr {
	return slog.String("kind", kind.String())
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

func ErrorString(msg string) slog.Attr {
	return slog.String("error", msg)
}
