// Package cli implements the credcore command-line client.
//
// Each invocation runs one subcommand against the gRPC endpoint and keeps
// the resulting token pair in a local SQLite session database, so later
// commands (whoami, refresh, logout) act as the logged-in user:
//
//	credcore-cli register -u alice -e alice@example.org
//	credcore-cli login -u alice
//	credcore-cli request-otp -e alice@example.org
//	credcore-cli login-otp -e alice@example.org -code 123456
//	credcore-cli whoami
//	credcore-cli refresh
//	credcore-cli token
//	credcore-cli admin-ping
//	credcore-cli logout
//
// Values missing from flags are prompted for. Passwords are read from the
// terminal without echo, or as a line from stdin when it is piped.
package cli
