package aidetect

// markerPhrases are expressions characteristic of generic formulaic
// writing. Matching is case-insensitive substring; each hit contributes
// points up to the marker cap.
var markerPhrases = []string{
	"in conclusion",
	"in summary",
	"it is important to note",
	"it is worth noting",
	"it should be noted",
	"plays a crucial role",
	"plays a vital role",
	"plays a significant role",
	"plays a pivotal role",
	"cutting-edge",
	"state-of-the-art",
	"rapidly evolving",
	"ever-evolving",
	"ever-changing",
	"in today's world",
	"in today's society",
	"in the modern era",
	"in the digital age",
	"in recent years",
	"in this article",
	"in this essay",
	"this article explores",
	"this essay explores",
	"delve into",
	"delves into",
	"delving into",
	"embark on a journey",
	"navigate the complexities",
	"navigating the landscape",
	"the landscape of",
	"a testament to",
	"underscores the importance",
	"highlights the importance",
	"sheds light on",
	"paves the way",
	"unlock the potential",
	"unlocking the potential",
	"harness the power",
	"harnessing the power",
	"leverage the power",
	"a myriad of",
	"a plethora of",
	"a wide range of",
	"a wide array of",
	"a variety of factors",
	"various aspects",
	"numerous benefits",
	"countless opportunities",
	"significant advancements",
	"remarkable progress",
	"profound impact",
	"transformative power",
	"revolutionize the way",
	"revolutionizing the way",
	"game-changer",
	"double-edged sword",
	"on the other hand",
	"at the end of the day",
	"when it comes to",
	"world of possibilities",
	"realm of",
	"crucial aspect",
	"key takeaways",
	"best practices",
	"holistic approach",
	"comprehensive overview",
	"seamless integration",
	"robust solution",
	"foster a deeper understanding",
	"gain a deeper understanding",
	"moreover",
	"furthermore",
}
