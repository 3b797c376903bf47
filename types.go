package cmakels

import (
	"github.com/jward/cmakels/internal/config"
	"github.com/jward/cmakels/internal/index"
	"github.com/jward/cmakels/internal/packages"
	"github.com/jward/cmakels/internal/position"
	"github.com/jward/cmakels/internal/store"
	"github.com/jward/cmakels/internal/syntax"
)

// Public aliases for the internal types that appear in the Engine API.

type Store = store.Store
type Config = config.Config
type Definition = index.Definition
type DefKind = index.DefKind
type Location = index.Location
type PackageRecord = packages.Record
type Category = position.Category
type Point = syntax.Point
type Range = syntax.Range
type Tree = syntax.Tree
