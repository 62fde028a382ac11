package commands

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alecthomas/kingpin/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tasklib/internal/model"
)

func TestResolveConfigPath(t *testing.T) {
	tests := map[string]struct {
		explicit string
		home     string
		existing []string
		expPath  string
	}{
		"An explicit path should always be used": {
			explicit: "/etc/tasklib/custom.yaml",
			home:     "/home/user",
			existing: []string{"tasklib.yaml", "/home/user/.tasklib/tasklib.yaml"},
			expPath:  "/etc/tasklib/custom.yaml",
		},
		"A local config should be used before the user one": {
			home:     "/home/user",
			existing: []string{"tasklib.yaml", "/home/user/.tasklib/tasklib.yaml"},
			expPath:  "tasklib.yaml",
		},
		"The user config should be used if there is no local one": {
			home:     "/home/user",
			existing: []string{"/home/user/.tasklib/tasklib.yaml"},
			expPath:  "/home/user/.tasklib/tasklib.yaml",
		},
		"Without any config the defaults should be used": {
			home:    "/home/user",
			expPath: "",
		},
		"Without home the user config should be ignored": {
			existing: []string{"/.tasklib/tasklib.yaml"},
			expPath:  "",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			exists := func(p string) bool {
				for _, e := range test.existing {
					if e == p {
						return true
					}
				}
				return false
			}

			gotPath := ResolveConfigPath(test.explicit, test.home, exists)
			assert.Equal(t, test.expPath, gotPath)
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := map[string]struct {
		err     error
		expCode int
	}{
		"No error": {
			err:     nil,
			expCode: 0,
		},
		"A not found error": {
			err:     fmt.Errorf("task t1: %w", model.ErrNotFound),
			expCode: 7,
		},
		"An already running error": {
			err:     fmt.Errorf("cmd: %w", &model.AlreadyRunningError{TaskID: "t1", PID: 10}),
			expCode: 8,
		},
		"A not valid error": {
			err:     fmt.Errorf("task t1: %w", model.ErrNotValid),
			expCode: 9,
		},
		"An unexpected error": {
			err:     errors.New("whatever"),
			expCode: 9,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expCode, ExitCode(test.err))
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	tests := map[string]struct {
		root      RootCommand
		expConfig func(c *model.Config)
	}{
		"Without flags the config should be kept": {
			root:      RootCommand{},
			expConfig: func(c *model.Config) {},
		},
		"Set flags should override the config": {
			root: RootCommand{
				TasksDir:      "/srv/tasks",
				TasksPattern:  "*.yml",
				PuppetModules: "/srv/modules",
				PuppetOptions: "--noop",
				PIDDir:        "/run/pid",
				ReportDir:     "/run/report",
				HistoryDB:     "/run/tasklib.db",
				Debug:         true,
			},
			expConfig: func(c *model.Config) {
				c.TasksDirectory = "/srv/tasks"
				c.TasksPattern = "*.yml"
				c.PuppetModules = "/srv/modules"
				c.PuppetOptions = "--noop"
				c.PIDDir = "/run/pid"
				c.ReportDir = "/run/report"
				c.HistoryDB = "/run/tasklib.db"
				c.Debug = true
			},
		},
		"Disabling the history should remove the history database": {
			root:      RootCommand{NoHistory: true},
			expConfig: func(c *model.Config) { c.HistoryDB = "" },
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			exp := model.DefaultConfig()
			test.expConfig(&exp)

			assert.Equal(t, exp, test.root.applyOverrides(model.DefaultConfig()))
		})
	}
}

func TestChildArgs(t *testing.T) {
	r := &RootCommand{
		LoggerType: LoggerTypeJSON,
		ConfigPath: "/etc/tasklib.yaml",
		Debug:      true,
		Config: model.Config{
			TasksDirectory: "/srv/tasks",
			TasksPattern:   "*.yml",
			PuppetModules:  "/srv/modules",
			PuppetOptions:  "--verbose --debug",
			PIDDir:         "/run/pid",
			StatusDir:      "/run/status",
			ReportDir:      "/run/report",
		},
	}

	exp := []string{
		"--no-color",
		"--logger", "json",
		"--tasks-dir=/srv/tasks",
		"--tasks-pattern=*.yml",
		"--puppet-modules=/srv/modules",
		"--puppet-options=--verbose --debug",
		"--pid-dir=/run/pid",
		"--status-dir=/run/status",
		"--report-dir=/run/report",
		"--no-history",
		"--config", "/etc/tasklib.yaml",
		"--debug",
	}
	assert.Equal(t, exp, r.ChildArgs())
}

func TestChildArgsLoadTheSameConfig(t *testing.T) {
	tests := map[string]struct {
		config model.Config
	}{
		"A config with history should be loaded by the child": {
			config: model.Config{
				TasksDirectory: "/srv/tasks",
				TasksPattern:   "*.yml",
				PuppetModules:  "/srv/modules",
				PuppetOptions:  "--logdest console --trace",
				PIDDir:         "/run/pid",
				StatusDir:      "/run/status",
				ReportDir:      "/run/report",
				LogFile:        model.DefaultConfig().LogFile,
				HistoryDB:      "/run/tasklib.db",
			},
		},
		"A config without history should be loaded by the child": {
			config: model.Config{
				TasksDirectory: "/srv/tasks",
				TasksPattern:   "*tasks.yaml",
				PuppetModules:  "/srv/modules",
				PuppetOptions:  "--noop",
				PIDDir:         "/run/pid",
				StatusDir:      "/run/status",
				ReportDir:      "/run/report",
				LogFile:        model.DefaultConfig().LogFile,
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			parent := &RootCommand{LoggerType: LoggerTypeDefault, Config: test.config}
			args := append(parent.ChildArgs(), "--no-config")

			app := kingpin.New("tasklib", "")
			child := NewRootCommand(app)
			_, err := app.Parse(args)
			require.NoError(err)
			require.NoError(child.LoadConfig(context.Background()))

			assert.Equal(t, test.config, child.Config)
		})
	}
}
