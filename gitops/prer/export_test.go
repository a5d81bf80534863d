package prer

// VersionsForTest exposes versions.
var VersionsForTest = versions

// ShortForTest exposes short.
var ShortForTest = short
