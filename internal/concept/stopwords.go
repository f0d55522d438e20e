package concept

// defaultStopwords filters generic terms that make poor link anchors.
// Covers Portuguese function words and the generic-noun list, plus a few
// English function words for mixed-language corpora.
var defaultStopwords = []string{
	// Portuguese function words
	"o", "a", "e", "de", "do", "da", "dos", "das", "que", "em", "com",
	"por", "para", "como", "mais", "uma", "um", "uns", "umas", "não",
	"são", "foi", "ser", "tem", "está", "estão", "seu", "sua", "seus",
	"suas", "isso", "isto", "esse", "essa", "este", "esta", "pelo",
	"pela", "nos", "nas", "num", "numa", "mas", "ou", "se", "ao", "aos",
	// Generic nouns that carry no linkable meaning
	"coisa", "algo", "alguém", "pessoa",
	"forma", "modo", "tipo", "exemplo", "caso", "situação",
	"hoje", "ontem", "amanhã", "agora", "depois", "antes",
	"momento", "tempo", "vez",
	"muito", "pouco", "algum", "todo",
	"lugar", "local", "área", "parte",
	// English function words
	"the", "and", "for", "with", "this", "that", "from", "are", "was",
	"were", "has", "have", "had", "not", "but", "its", "his", "her",
	"they", "them", "their", "which", "will", "would", "been", "being",
	"can", "could", "should", "about", "into", "over", "under", "also",
	"some", "any", "all", "more", "most", "other", "such", "than",
	"then", "when", "where", "what", "who", "how", "why",
}
