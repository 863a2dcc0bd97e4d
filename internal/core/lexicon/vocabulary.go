package lexicon

const (
	UnknownSubject = "unknown"
	GeneralCluster = "general_other"
)

// Topic cluster names.
const (
	ClusterRivalry               = "rivalry"
	ClusterPlatformConspiracy    = "platform_conspiracy"
	ClusterGameplayTactics       = "gameplay_tactics"
	ClusterCulturalIdentity      = "cultural_identity"
	ClusterPerformancePersona    = "performance_persona"
	ClusterPersonalHistory       = "personal_history"
	ClusterSkillLevel            = "skill_level"
	ClusterOrganizationStructure = "organization_structure"
	ClusterScheduling            = "scheduling"
	ClusterPhysicalDescription   = "physical_description"
)

// Subjects are checked in order; the persona comes first.
var Subjects = []Rule{
	{Label: "nicky", Keywords: []string{"nicky", "noodle arms", "dente", "nick"}},
	{Label: "uncle_vinny", Keywords: []string{"uncle vinny", "vinny"}},
	{Label: "sal", Keywords: []string{"sal", "salvatore"}},
	{Label: "the_show", Keywords: []string{"the show", "the stream", "stream", "podcast", "episode", "broadcast"}},
	{Label: "the_organization", Keywords: []string{"the organization", "the family", "the crew", "the outfit", "mob"}},
	{Label: "chat", Keywords: []string{"chat", "viewer", "audience", "community", "subscriber"}},
	{Label: "the_platform", Keywords: []string{"twitch", "youtube", "the platform", "behaviour interactive"}},
}

// Clusters are deliberately fine-grained so each holds a few dozen facts at
// most. Order is priority.
var Clusters = []Rule{
	{Label: ClusterRivalry, Keywords: []string{
		"rival", "rivalry", "feud", "beef", "nemesis", "enemy", "enemies", "grudge", "arch-enemy",
	}},
	{Label: ClusterPlatformConspiracy, Keywords: []string{
		"conspiracy", "rigged", "shadowban", "shadowbanned", "algorithm", "the devs", "sabotage",
		"out to get", "cover-up", "nerf", "nerfed",
	}},
	{Label: ClusterGameplayTactics, Keywords: []string{
		"main", "killer", "survivor", "perk", "build", "loadout", "camp", "camping", "tunnel",
		"tunneling", "hook", "generator", "chase", "loop", "strategy", "tactic", "dead by daylight", "dbd",
	}},
	{Label: ClusterCulturalIdentity, Keywords: []string{
		"italian", "italy", "sicilian", "sicily", "newark", "jersey", "heritage", "culture",
		"nonna", "catholic", "pasta", "pizza", "sauce", "gravy", "cannoli",
	}},
	{Label: ClusterPerformancePersona, Keywords: []string{
		"persona", "character", "catchphrase", "voice", "accent", "gimmick", "in character",
		"roleplay", "bit", "act",
	}},
	{Label: ClusterPersonalHistory, Keywords: []string{
		"born", "grew up", "childhood", "raised", "used to", "years ago", "mother", "father",
		"brother", "sister", "cousin", "history",
	}},
	{Label: ClusterSkillLevel, Keywords: []string{
		"skill", "skilled", "good at", "bad at", "rank", "ranked", "grade", "iridescent",
		"noob", "beginner", "expert", "amateur", "professional", "pro",
	}},
	{Label: ClusterOrganizationStructure, Keywords: []string{
		"boss", "capo", "underboss", "consigliere", "soldier", "crew", "organization",
		"hierarchy", "reports to", "leader",
	}},
	{Label: ClusterScheduling, Keywords: []string{
		"schedule", "start", "starting", "o'clock", "tonight", "tomorrow", "monday", "tuesday", "wednesday",
		"thursday", "friday", "saturday", "sunday", "weekly", "daily", "live at", "hour",
	}},
	{Label: ClusterPhysicalDescription, Keywords: []string{
		"tall", "short", "hair", "eyes", "wear", "wearing", "suit", "looks like", "appearance",
		"mustache", "tattoo", "weight", "height", "arms",
	}},
}

// Polarity tiers in priority order: strong-negative, strong-positive,
// weak-negative, weak-positive.
var (
	StrongNegative = []string{"hate", "despise", "loathe", "detest", "can't stand", "never", "worst", "disgusting", "terrible"}
	StrongPositive = []string{"love", "adore", "best", "favorite", "favourite", "obsessed", "always", "greatest", "amazing"}
	WeakNegative   = []string{"dislike", "avoid", "annoy", "annoying", "bad", "not", "don't", "doesn't", "rarely", "boring"}
	WeakPositive   = []string{"like", "enjoy", "prefer", "good", "fan", "fond"}
)

// RivalryKinds distinguishes what a rivalry is about.
var RivalryKinds = []Rule{
	{Label: "food_conflict", Keywords: []string{"food", "pizza", "pasta", "sauce", "cook", "cooking", "recipe", "pineapple", "meatball"}},
	{Label: "gaming_conflict", Keywords: []string{"game", "gaming", "killer", "survivor", "match", "dbd", "dead by daylight"}},
	{Label: "streaming_conflict", Keywords: []string{"stream", "streaming", "streamer", "chat", "twitch", "viewer", "raid"}},
}

// Heritage markers for cultural identity values.
var Heritage = []string{"italian", "sicilian", "neapolitan", "newark", "jersey", "brooklyn", "catholic"}

// Skill tiers for skill level values.
var SkillTiers = []Rule{
	{Label: "skill:high", Keywords: []string{"expert", "professional", "pro", "iridescent", "skilled", "good at"}},
	{Label: "skill:low", Keywords: []string{"noob", "beginner", "amateur", "bad at"}},
}

var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Killers is the closed roster of playable killers. A fact names a main or
// favourite from this roster; two different names in that role conflict.
var Killers = []string{
	"ghostface", "hillbilly", "trapper", "wraith", "nurse", "huntress", "myers", "shape", "hag",
	"doctor", "cannibal", "leatherface", "nightmare", "freddy", "pig", "clown", "spirit", "legion",
	"plague", "oni", "deathslinger", "executioner", "pyramid head", "blight", "twins", "trickster",
	"cenobite", "pinhead", "artist", "onryo", "sadako", "dredge", "mastermind", "wesker",
	"knight", "skull merchant", "singularity", "xenomorph", "chucky", "lich", "dracula",
	"houndmaster", "ghoul", "demogorgon",
}

// RelatedClusters lists clusters whose facts may contradict each other even
// though they sit in different clusters. Relations are symmetric.
var RelatedClusters = map[string][]string{
	ClusterCulturalIdentity:      {ClusterGameplayTactics, ClusterPerformancePersona, ClusterPersonalHistory},
	ClusterGameplayTactics:       {ClusterCulturalIdentity, ClusterSkillLevel},
	ClusterPerformancePersona:    {ClusterCulturalIdentity, ClusterRivalry},
	ClusterRivalry:               {ClusterPerformancePersona, ClusterPlatformConspiracy},
	ClusterPlatformConspiracy:    {ClusterRivalry},
	ClusterSkillLevel:            {ClusterGameplayTactics},
	ClusterPersonalHistory:       {ClusterCulturalIdentity, ClusterOrganizationStructure},
	ClusterOrganizationStructure: {ClusterPersonalHistory},
}

// Related reports whether clusters a and b are listed as related.
func Related(a, b string) bool {
	for _, r := range RelatedClusters[a] {
		if r == b {
			return true
		}
	}
	return false
}

// OpposingPair is an antonym pair; a fact containing one side conflicts with
// a fact containing the other.
type OpposingPair struct {
	A, B string
}

var OpposingPairs = []OpposingPair{
	{"love", "hate"},
	{"like", "dislike"},
	{"prefer", "avoid"},
	{"is", "is not"},
	{"is", "isn't"},
	{"will", "will not"},
	{"will", "won't"},
	{"can", "cannot"},
	{"can", "can't"},
	{"always", "never"},
	{"honor", "dishonor"},
	{"professional", "amateur"},
}

// KillerAliases maps alternate names onto the roster name they refer to.
var KillerAliases = map[string]string{
	"shape":       "myers",
	"freddy":      "nightmare",
	"leatherface": "cannibal",
	"pinhead":     "cenobite",
	"sadako":      "onryo",
}

// ExclusiveSet is an enumeration whose members are mutually exclusive when a
// fact names one of them in the given role context.
type ExclusiveSet struct {
	Name    string
	Context []string
	Members []string
	Aliases map[string]string
}

// Canonical resolves an alias to its member name.
func (s ExclusiveSet) Canonical(member string) string {
	if c, ok := s.Aliases[member]; ok {
		return c
	}
	return member
}

// CrewMembers names the people who can hold a crew role.
var CrewMembers = []string{"nicky", "nick", "dente", "uncle vinny", "vinny", "sal", "salvatore"}

var crewAliases = map[string]string{
	"nick":        "nicky",
	"dente":       "nicky",
	"uncle vinny": "vinny",
	"salvatore":   "sal",
}

// crewRole builds the set for a role only one person holds at a time; two
// facts giving it different holders conflict.
func crewRole(role string) ExclusiveSet {
	return ExclusiveSet{
		Name: "crew_" + role,
		Context: []string{
			"is the " + role, "is " + role, "as " + role, role + " of the",
			"became " + role, "became the " + role, "made " + role,
		},
		Members: CrewMembers,
		Aliases: crewAliases,
	}
}

var ExclusiveSets = []ExclusiveSet{
	{
		Name:    "main_killer",
		Context: []string{"main", "maining", "favorite", "favourite", "best", "signature", "plays as", "go-to"},
		Members: Killers,
		Aliases: KillerAliases,
	},
	crewRole("boss"),
	crewRole("underboss"),
	crewRole("consigliere"),
	{
		Name:    "hometown",
		Context: []string{"from", "born in", "grew up in", "raised in", "hometown"},
		Members: []string{"newark", "brooklyn", "queens", "the bronx", "staten island", "philadelphia", "naples", "palermo", "sicily"},
	},
}
