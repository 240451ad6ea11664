package game

import "math/rand/v2"

var animals = []string{
	"Cat", "Dog", "Elephant", "Giraffe", "Lion",
	"Tiger", "Bear", "Rabbit", "Fox", "Wolf",
	"Owl", "Eagle", "Dolphin", "Whale", "Shark",
	"Penguin", "Koala", "Panda", "Monkey", "Zebra",
	"Horse", "Cow", "Pig", "Sheep", "Chicken",
	"Duck", "Frog", "Snake", "Turtle", "Octopus",
	"Butterfly", "Bee", "Ant", "Spider", "Crab",
	"Lobster", "Jellyfish", "Starfish", "Seahorse", "Bat",
	"Deer", "Moose", "Rhino", "Hippo", "Gorilla",
	"Cheetah", "Leopard", "Crocodile", "Flamingo", "Peacock",
}

// RandomAnimals 返回 count 个互不重复的随机动物名。
func RandomAnimals(count int) []string {
	shuffled := make([]string, len(animals))
	copy(shuffled, animals)

	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled[:count]
}
