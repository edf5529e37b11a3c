// Package secret resolves secret material referenced from configuration.
//
// Two mechanisms compose:
//   - Strict environment expansion: ${VAR} is replaced from the environment
//     and it is an error for VAR to be unset (see ExpandEnvStrict).
//   - Secret references: values of the form secretref:<provider>:<ref> are
//     resolved through a named Provider, either as the whole value or inline
//     inside a larger string such as a connection string.
//
// The env and file providers cover the common deployments:
//
//	secretref:env:PGPASSWORD
//	host=db user=app password=secretref:file:/run/secrets/pgpass
//
// Providers must be safe for concurrent use and must never log resolved
// values.
package secret
