// Package output renders quota-cli results as a table, JSON or YAML.
//
// Table rendering reads struct fields through reflection. A `table` tag
// names the column and may add ",wide" to show it only with --wide; a "-"
// tag hides the field. Without a tag the json name is used.
package output
