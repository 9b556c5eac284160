package mmbts

// DefaultPortName is used by Connect when no port name is given.
const DefaultPortName = "COM4"
