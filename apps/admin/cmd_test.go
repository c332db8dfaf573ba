package main

import (
	"testing"

	"github.com/trezcool/maendeleo/core"
)

func Test_commandLine_run_help(t *testing.T) {
	cli := &commandLine{conf: core.Conf}

	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: []string{"admin"}},
		{name: "unknown command", args: []string{"admin", "frobnicate"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(tt.args); err != errHelp {
				t.Errorf("run() = %v; want errHelp", err)
			}
		})
	}
}
