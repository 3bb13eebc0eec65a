// Package formsg verifies and decrypts FormSG webhook deliveries.
//
// A delivery is signed with the FormSG Ed25519 signing key over the callback
// URI, the submission and form identifiers and the send time. Its content is
// sealed with a NaCl box to the form's public key.
package formsg
