package errors

import (
	"fmt"
	"strings"
)

// UserFriendlyError provides user-friendly error messages with context and hints
type UserFriendlyError struct {
	Message string
	Reason  string
	Hint    string
	Try     string
	Err     error
}

func (e UserFriendlyError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Message)
	if e.Reason != "" {
		buf.WriteString("\n  Reason: " + e.Reason)
	}
	if e.Hint != "" {
		buf.WriteString("\n  Hint: " + e.Hint)
	}
	if e.Try != "" {
		buf.WriteString("\n  Try: " + e.Try)
	}
	if e.Err != nil {
		buf.WriteString("\n  Details: " + e.Err.Error())
	}
	return buf.String()
}

func (e UserFriendlyError) Unwrap() error {
	return e.Err
}

// WrapConnectError wraps SSH/HTTP connection errors with user-friendly context
func WrapConnectError(err error, host string, port int) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Failed to connect to device at %s:%d", host, port),
		Reason:  extractConnectReason(err),
		Hint:    "Check that the device is reachable and that SSH/SCP (or NX-API) is enabled",
		Try:     fmt.Sprintf("ssh -p %d %s", port, host),
		Err:     err,
	}
}

// WrapTransferError wraps a failed file transfer with user-friendly context
func WrapTransferError(err error, localPath, remotePath string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Transfer between %s and %s failed", localPath, remotePath),
		Reason:  err.Error(),
		Hint:    "A failed transfer leaves the remote file in an undefined state",
		Try:     fmt.Sprintf("nxsync check %s", localPath),
	}
}

// WrapCommandError wraps a rejected device command with user-friendly context
func WrapCommandError(err error, command string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Device rejected command %q", command),
		Reason:  extractCommandReason(err),
		Hint:    "The file system name may be wrong, or the account may lack privileges",
		Try:     "Run the command on the device CLI to see the full reply",
		Err:     err,
	}
}

// WrapConfigError wraps configuration errors with user-friendly context
func WrapConfigError(err error, configPath string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Configuration error in %s", configPath),
		Reason:  err.Error(),
		Hint:    "Devices need a unique name and a host; protocol is scp, sftp or local",
		Try:     fmt.Sprintf("Write a fresh template: nxsync config init %s.example", configPath),
		Err:     err,
	}
}

func extractConnectReason(err error) string {
	errStr := err.Error()

	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return "Connection timeout - device may be offline or unreachable"
	}
	if strings.Contains(errStr, "connection refused") {
		return "Connection refused - SSH or NX-API may not be enabled on this port"
	}
	if strings.Contains(errStr, "no route to host") {
		return "No route to host - network routing issue or device unreachable"
	}
	if strings.Contains(errStr, "unable to authenticate") || strings.Contains(errStr, "no supported methods remain") {
		return "Authentication failed - check username and password"
	}
	if strings.Contains(errStr, "knownhosts") || strings.Contains(errStr, "key mismatch") {
		return "Host key verification failed"
	}

	return "Connection failed"
}

func extractCommandReason(err error) string {
	errStr := err.Error()

	if strings.Contains(errStr, "No such file") {
		return "The remote file does not exist"
	}
	if strings.Contains(errStr, "Permission denied") || strings.Contains(errStr, "permission denied") {
		return "Permission denied on the device"
	}
	if strings.Contains(errStr, "Invalid command") || strings.Contains(errStr, "Syntax error") {
		return "The device does not support this command"
	}

	return "Device returned an error"
}
