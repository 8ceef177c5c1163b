// Package secrets resolves sensitive configuration values, such as the
// administrative password, from environment variables or files so they do
// not have to be written into configuration files or command lines.
package secrets
