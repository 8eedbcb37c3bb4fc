package eigen

// ViaJacobi exposes viaJacobi to the package's external tests, which use
// it as an independent cross-check against the closed-form solver.
var ViaJacobi = viaJacobi
