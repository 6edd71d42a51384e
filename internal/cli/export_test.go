package cli

// Export internal functions for testing.

// RunConfigSet exports runConfigSet for testing.
var RunConfigSet = runConfigSet

// RunConfigGet exports runConfigGet for testing.
var RunConfigGet = runConfigGet

// RunConfigList exports runConfigList for testing.
var RunConfigList = runConfigList

// ClampParallel exports clampParallel for testing.
var ClampParallel = clampParallel

// ResolvePath exports resolvePath for testing.
var ResolvePath = resolvePath

// SplitPair exports splitPair for testing.
var SplitPair = splitPair

// LoginCommand exports loginCommand for testing.
var LoginCommand = loginCommand
