package main

import (
	"go.uber.org/fx"

	"github.com/AhmadKaify/Sanasend/internal/app"
)

func main() {
	fx.New(app.CreateApp()).Run()
}
