// Package presence answers "is this dependency already installed?" from
// filesystem state alone. Checks have no side effects, never use the
// network, and treat every stat failure as absence.
package presence
