package catalog

// NoQuote is returned for heroes with no quote catalog entry
const NoQuote = "..."

// quotes maps hero names to their battle quote lists. Unknown heroes get
// NoQuote.
var quotes = map[string]Catalog{
	"Astarion": {
		"How dreadfully uncivilized.",
		"Let's make this quick, shall we?",
		"Ugh, blood everywhere. Glorious.",
		"You really should have stayed home.",
		"Don't worry, I'm just getting started.",
		"Another one down. Who's next?",
		"You call *that* an attack?",
		"I was hoping for a challenge.",
		"How utterly predictable.",
		"Such a waste of good blood...",
		"Now that was almost invigorating.",
	},
	"Gale": {
		"Ah, the elegance of arcane annihilation.",
		"Stand back, this could get *dramatic*.",
		"Behold, the artistry of destruction.",
		"Do try to keep up, will you?",
		"One spell, one solution.",
		"It's not arrogance if you *are* that good.",
		"I warned you. I *always* warn them.",
		"Now, *that* was satisfying.",
		"They never learn. Delightful!",
		"And that, dear friends, is how it's done.",
	},
	"Shadowheart": {
		"Shar, guide my hand.",
		"Step into the shadows... and perish.",
		"Your pain is a prayer answered.",
		"You chose the wrong side of the dark.",
		"Let the silence take you.",
		"Darkness is mercy. I offer none.",
		"You never saw it coming. How fitting.",
		"Let the light fade from your eyes.",
		"My devotion is deadly.",
		"Another sacrifice made in shadow.",
	},
	"Wyll": {
		"The Blade of Frontiers strikes true!",
		"Evil beware, your end is nigh!",
		"This one's for the stories.",
		"Even devils should fear my blade.",
		"By blade and will, I stand unbroken.",
		"Heroism never comes easy.",
		"Face me, coward!",
		"A swift end, for a sordid soul.",
		"I've danced with worse than you in Avernus.",
		"Justice is served, with steel.",
	},
	"The_Dark_Urge": {
		"The blood... it sings to me.",
		"Why does it feel *so* good?",
		"More. I need more.",
		"That scream... exquisite.",
		"No remorse. Only instinct.",
		"I was born for this.",
		"The urge... it's glorious.",
		"Violence is art. And I'm the artist.",
		"Mercy? Not today.",
		"They begged. I smiled.",
	},
	"Karlach": {
		"Hell yeah! That's what I'm talking about!",
		"Let's rip 'em to shreds!",
		"I'm on fire! Wait, literally!",
		"You picked the wrong tiefling to mess with!",
		"Come on! Who's next?!",
		"That all you got?!",
		"Time to smash some skulls!",
		"I love the smell of victory in the morning!",
		"Now *that's* what I call a workout!",
		"Ain't nothing like a good brawl!",
	},
}

// Quote returns a random battle quote for the given hero, or NoQuote when the
// hero has no catalog entry. Selection is independent across calls.
func Quote(heroName string) string {
	lines, ok := quotes[heroName]
	if !ok || lines.Size() == 0 {
		return NoQuote
	}
	return lines.At(RandIndex(lines.Size()))
}
