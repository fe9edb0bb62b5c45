package execshell

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

const environmentVariableTemplateConstant = "%s=%s"

// OSCommandRunner executes shell commands through os/exec.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs an OSCommandRunner instance.
func NewOSCommandRunner() OSCommandRunner {
	return OSCommandRunner{}
}

// Run executes the command and captures standard output, standard error, and the exit code.
// A non-zero exit status is reported through ExecutionResult, not as an error.
func (runner OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executableCommand := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	executableCommand.Dir = command.Details.WorkingDirectory

	if len(command.Details.EnvironmentVariables) > 0 {
		environment := os.Environ()
		for variableName, variableValue := range command.Details.EnvironmentVariables {
			environment = append(environment, fmt.Sprintf(environmentVariableTemplateConstant, variableName, variableValue))
		}
		executableCommand.Env = environment
	}

	if len(command.Details.StandardInput) > 0 {
		executableCommand.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	var standardOutputBuffer bytes.Buffer
	var standardErrorBuffer bytes.Buffer
	executableCommand.Stdout = &standardOutputBuffer
	executableCommand.Stderr = &standardErrorBuffer

	runError := executableCommand.Run()
	executionResult := ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
	}

	if runError != nil {
		exitError, isExitError := runError.(*exec.ExitError)
		if !isExitError {
			return ExecutionResult{}, runError
		}
		executionResult.ExitCode = exitError.ExitCode()
		return executionResult, nil
	}

	return executionResult, nil
}
