package handlers

import "testing"

func TestNewRootCmdRegistersSubcommands(t *testing.T) {
	root := NewRootCmd()

	want := map[string]bool{
		"serve":   false,
		"refresh": false,
		"worker":  false,
		"migrate": false,
	}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %s not registered", name)
		}
	}

	if root.PersistentFlags().Lookup("config") == nil {
		t.Errorf("persistent --config flag missing")
	}
}
