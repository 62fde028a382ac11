package model

import (
	"fmt"
	"strings"
)

// Config is the runtime configuration of the task library.
type Config struct {
	TasksDirectory string `yaml:"tasks_directory"`
	TasksPattern   string `yaml:"tasks_pattern"`
	PuppetModules  string `yaml:"puppet_modules"`
	PuppetOptions  string `yaml:"puppet_options"`
	ReportDir      string `yaml:"report_dir"`
	PIDDir         string `yaml:"pid_dir"`
	StatusDir      string `yaml:"status_dir"`
	LogFile        string `yaml:"log_file"`
	HistoryDB      string `yaml:"history_db"`
	Debug          bool   `yaml:"debug"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		TasksDirectory: "/etc/puppet/modules/osnailyfacter/modular/",
		TasksPattern:   "*tasks.yaml",
		PuppetModules:  "/etc/puppet/modules",
		PuppetOptions: strings.Join([]string{
			"--logdest syslog",
			"--logdest /var/log/puppet.log",
			"--logdest console",
			"--trace",
			"--evaltrace",
			"--verbose",
			"--debug",
			"--report",
		}, " "),
		ReportDir: "/var/tmp/task_report",
		PIDDir:    "/var/tmp/task_pid",
		StatusDir: "/var/tmp/task_status",
		LogFile:   "/var/tmp/tasklib.log",
		HistoryDB: "/var/tmp/tasklib.db",
	}
}

// Validate checks the configuration has everything required to run tasks.
func (c Config) Validate() error {
	if c.TasksDirectory == "" {
		return fmt.Errorf("tasks_directory is required: %w", ErrNotValid)
	}
	if c.TasksPattern == "" {
		return fmt.Errorf("tasks_pattern is required: %w", ErrNotValid)
	}
	if c.PIDDir == "" || c.StatusDir == "" || c.ReportDir == "" {
		return fmt.Errorf("pid_dir, status_dir and report_dir are required: %w", ErrNotValid)
	}
	return nil
}
