package main

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"blueprint/internal/config"
)

func TestLeafCommandsAreRunnable(t *testing.T) {
	cfg := config.Default()
	root := newRootCmd(&cfg)

	var walk func(cmd *cobra.Command)
	walk = func(cmd *cobra.Command) {
		for _, child := range cmd.Commands() {
			if child.Name() == "help" || child.Name() == "completion" {
				continue
			}
			if child.Short == "" {
				t.Errorf("%s has no short description", child.CommandPath())
			}
			if child.HasSubCommands() {
				walk(child)
				continue
			}
			if child.RunE == nil {
				t.Errorf("%s has no RunE", child.CommandPath())
			}
		}
	}
	walk(root)
}

func TestIDCommandsRequireAnID(t *testing.T) {
	cfg := config.Default()
	root := newRootCmd(&cfg)

	for _, path := range [][]string{
		{"asset", "get"},
		{"asset", "rm"},
		{"project", "show"},
		{"project", "rm"},
		{"project", "restore"},
		{"notify", "dismiss"},
		{"notify", "undo"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil {
			t.Fatalf("find %v: %v", path, err)
		}
		if !strings.Contains(cmd.Use, "<id>") {
			t.Errorf("%s usage does not mention <id>: %q", cmd.CommandPath(), cmd.Use)
		}
		if cmd.Args == nil {
			t.Fatalf("%s accepts any arguments", cmd.CommandPath())
		}
		if err := cmd.Args(cmd, nil); err == nil {
			t.Errorf("%s accepted an empty id list", cmd.CommandPath())
		}
	}
}

func TestProjectRmHasWaitFlag(t *testing.T) {
	cfg := config.Default()
	cmd, _, err := newRootCmd(&cfg).Find([]string{"project", "rm"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if cmd.Flags().Lookup("wait") == nil {
		t.Fatal("project rm must expose --wait")
	}
}
