package logger

import (
	"go.uber.org/zap"
)

type Options struct {
	Service string
	Env     string
}

// New は環境に応じたzapロガーを作る。devは人間向け、それ以外はJSON。
func New(opts Options) (*zap.Logger, error) {
	var l *zap.Logger
	var err error

	if opts.Env == "dev" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	return l.With(
		zap.String("service", opts.Service),
		zap.String("env", opts.Env),
	), nil
}
