// Package command defines the quota-cli commands.
//
// Commands that talk to the server go through connection.HTTPClient.
// keygen, currency and token work locally. All output is written to the
// app writer in the format chosen by --output.
package command
