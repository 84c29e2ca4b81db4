//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// State is the position of a setup conversation in the credential
// collection flow.
// ENUM(await_api_id,await_api_hash,await_phone,await_code,await_password)
type State string
