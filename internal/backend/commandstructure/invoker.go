package commandstructure

import (
	"fmt"
	"log/slog"
)

// CommandInvoker runs a fixed chain of commands over pages
type CommandInvoker struct {
	commands []Command
}

// NewCommandInvoker creates an invoker for the given commands
func NewCommandInvoker(commands []Command) *CommandInvoker {
	return &CommandInvoker{commands: commands}
}

// NewCommandInvokerFromConfig builds every configured command from the registry
func NewCommandInvokerFromConfig(registry *CommandRegistry, configs []CommandConfig) (*CommandInvoker, error) {
	commands := make([]Command, 0, len(configs))
	for _, config := range configs {
		command, err := registry.Create(config.Name, config.Params)
		if err != nil {
			return nil, err
		}
		commands = append(commands, command)
	}
	return NewCommandInvoker(commands), nil
}

// CommandNames returns the names of the chained commands in execution order
func (i *CommandInvoker) CommandNames() []string {
	names := make([]string, 0, len(i.commands))
	for _, command := range i.commands {
		names = append(names, command.Name())
	}
	return names
}

// Execute runs all commands in order. It returns the resulting page and the names of
// the commands that modified it.
func (i *CommandInvoker) Execute(page Page) (Page, []string, error) {
	var applied []string
	for _, command := range i.commands {
		result, modified, err := command.Execute(page)
		if err != nil {
			slog.Error("CommandInvoker: command failed", "command", command.Name(), "page", page.Number, "error", err)
			return page, applied, fmt.Errorf("command %s failed on page %d: %w", command.Name(), page.Number, err)
		}
		if modified {
			applied = append(applied, command.Name())
		}
		page = result
	}
	return page, applied, nil
}
