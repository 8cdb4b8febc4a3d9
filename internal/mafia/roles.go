package mafia

// Team is the winning faction a role belongs to.
type Team string

const (
	TeamMafia       Team = "mafia"
	TeamVillage     Team = "village"
	TeamIndependent Team = "independent"
)

// Role is one entry in the built-in role catalog.
type Role struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Team        Team   `json:"team"`
	Description string `json:"description"`
}

// Catalog is the set of roles a role template may draw from. Trimmed from a
// much longer list of flavor roles down to the ones with distinct mechanical
// identity for this reference implementation.
var Catalog = []Role{
	{
		Name:        "Mafia",
		Slug:        "mafia",
		Team:        TeamMafia,
		Description: "Eliminates one player each night; wins by outnumbering the village.",
	},
	{
		Name:        "Doctor Watson",
		Slug:        "doctor-watson",
		Team:        TeamVillage,
		Description: "Protects one player each night from elimination.",
	},
	{
		Name:        "Sherlock",
		Slug:        "sherlock",
		Team:        TeamIndependent,
		Description: "Investigates one player each night to learn their role.",
	},
	{
		Name:        "Bodyguard",
		Slug:        "bodyguard",
		Team:        TeamVillage,
		Description: "Shields one player each night, at personal risk.",
	},
	{
		Name:        "Traitor",
		Slug:        "traitor",
		Team:        TeamMafia,
		Description: "Appears as a villager; activates only once the Mafia are gone.",
	},
	{
		Name:        "Mayor",
		Slug:        "mayor",
		Team:        TeamVillage,
		Description: "May reveal to double their own vote weight.",
	},
	{
		Name:        "Citizen",
		Slug:        "citizen",
		Team:        TeamVillage,
		Description: "No special power; votes and deduces.",
	},
}

// RoleBySlug looks up a catalog entry by its slug.
func RoleBySlug(slug string) (Role, bool) {
	for _, r := range Catalog {
		if r.Slug == slug {
			return r, true
		}
	}
	return Role{}, false
}
