package model

// ProtocolVersion is the version of the record wire format.
const ProtocolVersion = "1"
