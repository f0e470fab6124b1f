// Package domain defines core data models, contracts and the error taxonomy
// shared across secretline. It contains plain types (wire/state) and
// interfaces only.
package domain
