package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Info 正常日志，输出到 stdout
	Info zerolog.Logger

	// Error 错误日志，输出到 stderr
	Error zerolog.Logger
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	SetOutput(os.Stdout, os.Stderr)
}

// SetOutput redirects both loggers. Tests use it to silence or capture output.
func SetOutput(info, errs io.Writer) {
	Info = zerolog.New(zerolog.ConsoleWriter{Out: info, TimeFormat: time.DateTime, NoColor: true}).
		With().Timestamp().Logger()
	Error = zerolog.New(zerolog.ConsoleWriter{Out: errs, TimeFormat: time.DateTime, NoColor: true}).
		With().Timestamp().Logger()
}

// Println 输出正常日志到 stdout
func Println(v ...interface{}) {
	Info.Info().Msg(fmt.Sprint(v...))
}

// Printf 格式化输出正常日志到 stdout
func Printf(format string, v ...interface{}) {
	Info.Info().Msgf(format, v...)
}

// Errorln 输出错误日志到 stderr
func Errorln(v ...interface{}) {
	Error.Error().Msg(fmt.Sprint(v...))
}

// Errorf 格式化输出错误日志到 stderr
func Errorf(format string, v ...interface{}) {
	Error.Error().Msgf(format, v...)
}

// Fatalf 输出致命错误并退出程序
func Fatalf(format string, v ...interface{}) {
	Error.Fatal().Msgf(format, v...)
}
