// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

/*
Package models defines the data structures shared across Starfield.

Key Components:

  - Star: a catalog entry with its sky position, 3D position in parsecs,
    apparent magnitude and display color
  - Observation: raw astrometry and photometry from which a Star is built
  - Query: the four query variants (Cone, Frustum, Region, Bright)

Stars are built only through NewStar, which derives distance, Cartesian
position and RGB color from the observation. Queries validate their own
parameters and expose CanonicalFields so that equal queries map to the same
cache key regardless of float noise.

Query Variants:

  - Cone: stars within an angular radius of (RA, Dec), brighter than a limit
  - Frustum: stars inside a camera's view cone out to a maximum distance
  - Region: stars within a distance of a 3D point, brighter than a limit
  - Bright: every star brighter than a magnitude limit

Every variant carries MaxCount, which must be between 1 and MaxResultCount.
Validation failures wrap ErrInvalidQuery.
*/
package models
