package model

// BloodGroup is one of the eight ABO/Rh combinations.
type BloodGroup string

const (
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
)

// BloodGroups lists every canonical blood group.
var BloodGroups = []BloodGroup{
	BloodGroupAPos, BloodGroupANeg,
	BloodGroupBPos, BloodGroupBNeg,
	BloodGroupOPos, BloodGroupONeg,
	BloodGroupABPos, BloodGroupABNeg,
}

// Valid reports whether g is a canonical blood group.
func (g BloodGroup) Valid() bool {
	for _, c := range BloodGroups {
		if g == c {
			return true
		}
	}
	return false
}

// ParseBloodGroup returns the canonical group for an exact token.
func ParseBloodGroup(s string) (BloodGroup, bool) {
	g := BloodGroup(s)
	if !g.Valid() {
		return "", false
	}
	return g, true
}

// Donor is the persisted donor record.
type Donor struct {
	ID         string      `json:"-" bson:"-"`
	Name       string      `json:"name" bson:"name"`
	Contact    string      `json:"contact" bson:"contact"`
	BloodGroup *BloodGroup `json:"blood_group" bson:"blood_group"`
	City       string      `json:"city" bson:"city"`
	Latitude   float64     `json:"latitude" bson:"latitude"`
	Longitude  float64     `json:"longitude" bson:"longitude"`
}

// Group returns the donor's blood group as a string, or "" when unknown.
func (d Donor) Group() string {
	if d.BloodGroup == nil {
		return ""
	}
	return string(*d.BloodGroup)
}

// GroupPtr returns a pointer to g, for building donors inline.
func GroupPtr(g BloodGroup) *BloodGroup {
	return &g
}
