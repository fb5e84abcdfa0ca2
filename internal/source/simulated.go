package source

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"time"

	"reviewlens/internal/model"
)

// templates hold review text per sentiment bucket, keyed by a keyword
// matched against the query.
type templates struct {
	positive []string
	mixed    []string
	negative []string
}

var keywordTemplates = map[string]templates{
	"headphones": {
		positive: []string{
			"The noise cancellation on these is absolutely incredible. I can work from a coffee shop and hear nothing but my music.",
			"Sound quality is top notch. The bass is deep without being overpowering, and the mids are crystal clear.",
			"Battery life is phenomenal, I get about 30 hours easily on a single charge.",
			"Best wireless headphones I've owned. The over-ear fit is comfortable even after 4+ hours of use.",
			"The call quality is superb. People on the other end say I sound clearer than on speakerphone.",
			"The companion app is polished and the EQ customization is excellent.",
		},
		mixed: []string{
			"Sound is excellent but I find the ANC makes my ears feel a bit pressurized after long sessions.",
			"Great headphones but the touch controls are overly sensitive, too many accidental skips.",
			"For the price they're good but I expected a bit more bass. Treble is a little sharp.",
			"Comfortable for 2 hours, after that the clamping force starts to bother me.",
		},
		negative: []string{
			"Had these for 3 months and the right ear cup already has a crackling sound. Very disappointed.",
			"The multipoint Bluetooth feature drops my laptop connection constantly. Big issue for remote work.",
			"Way too expensive for what you get. My old pair sounded just as good for half the price.",
			"Returned them after a week. The touch controls were infuriating.",
		},
	},
	"vacuum": {
		positive: []string{
			"Picks up pet hair like nothing I've ever seen. My husky's fur doesn't stand a chance.",
			"Runs the full 60 minutes on eco mode, which is more than enough for my entire house.",
			"Lightweight and maneuverable. I can do the whole house without my arm getting tired.",
			"Suction on max mode is insane, pulls stuff out of carpet I didn't know was there.",
			"Converts to a handheld in seconds. Great for stairs and car interiors.",
		},
		mixed: []string{
			"Excellent performance but the battery drains too fast on max mode, maybe 20 minutes.",
			"Great suction but the dustbin is smaller than I'd like. Need to empty it mid-clean on big sessions.",
			"Works brilliantly on hardwood. Carpet performance is good but not exceptional.",
		},
		negative: []string{
			"The hair screw tool jammed on my first use. Customer service eventually replaced it.",
			"At this price, I expected the attachments to feel more premium.",
			"Noisy on max mode. Wouldn't use it while someone else is sleeping.",
		},
	},
	"laptop": {
		positive: []string{
			"Handles everything I throw at it, video editing, multiple VMs, no thermal throttling.",
			"Battery life is genuinely all-day. 12 hours of real mixed workload use.",
			"Completely silent under most workloads. The fanless design actually works at this performance level.",
			"The display is stunning and color accuracy is excellent for photo and video work.",
			"Lightest laptop I've owned and it's by far the fastest.",
		},
		mixed: []string{
			"Incredible performance but the base RAM configuration feels limiting for pro workloads.",
			"Love the hardware but only 2 USB-C ports is a real compromise.",
		},
		negative: []string{
			"RAM is soldered and non-upgradeable. The storage upgrade pricing is absurd.",
			"Gets warm during sustained GPU workloads, warmer than expected for a fanless design.",
		},
	},
	"phone": {
		positive: []string{
			"Camera system is absolutely best-in-class. Night mode photos are brighter than what my eye sees.",
			"Performance is flawless. Not a single stutter or app crash in 6 months of heavy use.",
			"Battery easily lasts a full day even with heavy use. Fast charging is genuinely fast.",
			"Display is gorgeous: sharp, bright outdoors, and the high refresh rate makes everything silky.",
		},
		mixed: []string{
			"Excellent hardware but the preinstalled software situation is still frustrating.",
			"The size is a bit unwieldy one-handed, but the display real estate is worth it.",
		},
		negative: []string{
			"Too big and too heavy. My wrist actually ached after extended use.",
			"Dropped it from about 3 feet and the screen cracked. Durability is disappointing at this price.",
		},
	},
}

var genericTemplates = templates{
	positive: []string{
		"Excellent product. Exceeded my expectations in every way.",
		"Solid build quality and the performance is exactly what was advertised.",
		"Would absolutely buy again. Highly recommended to anyone on the fence.",
		"Setup was straightforward and it has worked flawlessly since day one.",
		"Great value at this price point. Very happy with my purchase.",
	},
	mixed: []string{
		"Good product overall but a few minor issues keep it from being perfect.",
		"Does what it says but the quality control could be better.",
		"Happy with it mostly, just a few UX decisions I don't understand.",
		"Decent for the price but don't expect it to replace a more premium option.",
	},
	negative: []string{
		"Had high hopes but the quality doesn't match the price tag.",
		"Stopped working properly after just a few months of normal use.",
		"Customer support was unhelpful when I had an issue.",
		"Would not recommend based on my experience. Look at alternatives.",
	},
}

// Simulated generates a realistic review set without touching the
// network. Output is deterministic per query: the generator is seeded
// from the query text, so repeated runs and tests see identical data.
type Simulated struct {
	reviewCount int
	now         func() time.Time
}

// NewSimulated creates a simulated source emitting reviewCount reviews
// per query.
func NewSimulated(reviewCount int) *Simulated {
	if reviewCount <= 0 {
		reviewCount = 80
	}
	return &Simulated{reviewCount: reviewCount, now: time.Now}
}

func (s *Simulated) Name() string { return "simulated" }

// Fetch generates the review set for the query.
func (s *Simulated) Fetch(_ context.Context, query string) (*Result, error) {
	tmpl := templatesFor(query)
	rng := rand.New(rand.NewSource(querySeed(query)))
	now := s.now().UTC()

	sources := []string{"amazon", "youtube", "reddit", "bestbuy"}
	sourceWeights := []int{40, 35, 15, 10}

	reviews := make([]model.Review, 0, s.reviewCount)
	for i := 0; i < s.reviewCount; i++ {
		src := weightedChoice(rng, sources, sourceWeights)

		var pool []string
		var rating float64
		switch roll := rng.Intn(100); {
		case roll < 80:
			pool = tmpl.positive
			rating = 4.0 + rng.Float64()
		case roll < 95:
			pool = tmpl.mixed
			rating = 2.5 + rng.Float64()*1.4
		default:
			pool = tmpl.negative
			rating = 1.0 + rng.Float64()*1.4
		}
		rating = float64(int(rating*10+0.5)) / 10

		text := pool[rng.Intn(len(pool))]
		date := now.Add(-time.Duration(rng.Intn(730*24)) * time.Hour)
		reviewer := fmt.Sprintf("user_%08x", rng.Uint32())

		reviews = append(reviews, model.Review{
			ID:               model.ReviewID(src, reviewer, text),
			Source:           src,
			Text:             text,
			Rating:           &rating,
			Date:             &date,
			VerifiedPurchase: rng.Intn(100) < 70,
			HelpfulVotes:     rng.Intn(201),
			ReviewerID:       reviewer,
		})
	}

	return &Result{Reviews: reviews}, nil
}

// keywordOrder fixes the match precedence ("headphones" must win over
// its "phone" substring).
var keywordOrder = []string{"headphones", "vacuum", "laptop", "phone"}

func templatesFor(query string) templates {
	lower := strings.ToLower(query)
	for _, keyword := range keywordOrder {
		if strings.Contains(lower, keyword) {
			return keywordTemplates[keyword]
		}
	}
	return genericTemplates
}

func querySeed(query string) int64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(query))))
	return int64(h.Sum64())
}

func weightedChoice(rng *rand.Rand, items []string, weights []int) string {
	total := 0
	for _, w := range weights {
		total += w
	}
	roll := rng.Intn(total)
	for i, w := range weights {
		if roll < w {
			return items[i]
		}
		roll -= w
	}
	return items[len(items)-1]
}
