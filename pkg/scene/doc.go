// Package scene defines the primitive model of a ball-and-stick molecule:
// spheres (atoms) and cylinders (bonds) with stable integer IDs, a name
// index for rehydrating persisted records, ordered selections, and tiered
// validation.
package scene
