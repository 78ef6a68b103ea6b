package toys

// Model describes a purchasable toy.
type Model struct {
	Kind        Kind   `json:"kind"`
	Name        string `json:"name"`
	Cost        int    `json:"cost"`
	W           int    `json:"w"`
	H           int    `json:"h"`
	Description string `json:"description"`
}

// Catalog lists the shop, indexed by Kind.
var Catalog = [NumKinds]Model{
	KindFeed: {
		Kind: KindFeed, Name: "food bowl", Cost: 5, W: 2, H: 2,
		Description: "Kibble. Hungry kittens eat here.",
	},
	KindPlay: {
		Kind: KindPlay, Name: "ball", Cost: 20, W: 2, H: 2,
		Description: "A ball of yarn. Keeps boredom away.",
	},
	KindRelieve: {
		Kind: KindRelieve, Name: "litter box", Cost: 15, W: 3, H: 2,
		Description: "Kittens need to go somewhere. Better here than on the carpet.",
	},
	KindHeal: {
		Kind: KindHeal, Name: "pill", Cost: 30, W: 1, H: 1,
		Description: "Cures a sick kitten. Single use.",
	},
	KindSleep: {
		Kind: KindSleep, Name: "basket", Cost: 40, W: 3, H: 3,
		Description: "A comfy basket for naps.",
	},
}
