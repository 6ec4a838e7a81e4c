package common

// RedactedPlaceholder is returned to callers in place of a text field whose
// ciphertext could not be decrypted. The stored record is never modified.
const RedactedPlaceholder = "[decryption error]"
