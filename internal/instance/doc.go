// Package instance tracks lambda instances: a provisioned cluster plus the
// software configured on it.
//
// An instance moves through a fixed status machine and every transition is
// checked before it is recorded. The Manager drives cluster creation, playbook
// configuration and teardown, and reports each step through a Recorder so
// that the descriptor needed for teardown is durably stored before Create
// returns.
package instance
