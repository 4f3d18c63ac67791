package main

import (
	"go.uber.org/fx"

	"github.com/chatflow-ai/chatflow/internal/app"
)

func main() {
	fx.New(app.Module()).Run()
}
