package games

var blitzCategories = []string{
	"Animals",
	"Countries",
	"Foods",
	"Movies",
	"Sports",
	"Cities",
	"Jobs",
	"Fruits",
	"Things in a kitchen",
	"Musical instruments",
	"Board games",
	"Programming languages",
}

var blitzLetters = []string{
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J",
	"K", "L", "M", "N", "O", "P", "R", "S", "T", "W",
}

var pitchPrompts = []string{
	"Describe our next release in one word",
	"Name a startup that sells socks",
	"Pitch a new office snack",
	"Sum up last sprint",
	"Name the team mascot",
	"Pitch a feature nobody asked for",
	"Name a coffee machine",
	"Describe Mondays",
	"Name the build server",
	"Pitch a team offsite destination",
}

var clueboardWords = []string{
	"apple", "bridge", "castle", "dragon", "engine", "forest", "galaxy", "harbor",
	"island", "jungle", "kettle", "ladder", "magnet", "needle", "orange", "pirate",
	"rocket", "saddle", "tunnel", "violin", "window", "anchor", "button", "candle",
	"desert", "feather", "glacier", "hammer", "igloo", "jacket", "lantern", "mirror",
	"nest", "oyster", "pepper", "quartz", "river", "spider", "tiger", "umbrella",
}
