// Package ftps is the printer's side-channel file transport: FTP over
// implicit TLS on port 990, authenticated as "bblp" with the device access
// token.
//
// The printer's server handles one command stream per session and its
// certificate is self-signed, so this client:
//   - skips certificate verification (device-local TLS)
//   - shares a TLS session cache between control and data connections
//   - is NOT safe for concurrent use; callers serialise access
//
// A Client can be re-dialled after the server drops it. Errors are mapped
// to ErrNotFound (reply 550) and ErrNotConnected so callers can tell a
// missing file from a lost session.
package ftps
