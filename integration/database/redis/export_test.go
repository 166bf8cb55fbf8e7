package redis

// Forward exposes forward to the external test package.
var Forward = forward
