package ir

// EngineVersion is the datastore release, reported by the health endpoint.
const EngineVersion = "0.3.0"
