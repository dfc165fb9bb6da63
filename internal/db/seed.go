package db

import (
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedPassword is the password shared by every demo account.
const SeedPassword = "Campus#2024"

// seedProfiles is the demo cohort. The last entry is deliberately incomplete
// so it never shows up in discovery.
var seedProfiles = []Profile{
	{
		ID: "11111111-1111-1111-1111-111111111111", Email: "arjun.menon@smail.iitm.ac.in",
		FullName: "Arjun Menon", Gender: "male", Age: 22, Department: "Computer Science",
		AcademicYear: "3rd_year", Bio: "Compilers by day, carnatic fusion by night.",
		Interests: []string{"Programming", "Music", "Chess"}, VerificationStatus: VerificationVerified,
	},
	{
		ID: "22222222-2222-2222-2222-222222222222", Email: "kavya.iyer@smail.iitm.ac.in",
		FullName: "Kavya Iyer", Gender: "female", Age: 21, Department: "Electrical Engineering",
		AcademicYear: "2nd_year", Bio: "Solar cars, sketchbooks and long walks by the lake.",
		Interests: []string{"Energy", "Art", "Hiking"}, VerificationStatus: VerificationVerified,
	},
	{
		ID: "33333333-3333-3333-3333-333333333333", Email: "rohan.das@smail.iitm.ac.in",
		FullName: "Rohan Das", Gender: "male", Age: 23, Department: "Mechanical Engineering",
		AcademicYear: "4th_year", Bio: "Building a startup out of the hostel mess. Football on Sundays.",
		Interests: []string{"Startups", "Football", "Travel"}, VerificationStatus: VerificationVerified,
	},
	{
		ID: "44444444-4444-4444-4444-444444444444", Email: "meera.nair@smail.iitm.ac.in",
		FullName: "Meera Nair", Gender: "female", Age: 20, Department: "Chemistry",
		AcademicYear: "1st_year", Bio: "Reading list longer than my lab reports.",
		Interests: []string{"Reading", "Painting", "Philosophy"}, VerificationStatus: VerificationPending,
	},
	{
		ID: "55555555-5555-5555-5555-555555555555", Email: "dev.shah@ds.study.iitm.ac.in",
		FullName: "Dev Shah", Gender: "male", Age: 24, Department: "Data Science",
		AcademicYear: "mtech", Bio: "",
		Interests: []string{"ML"}, VerificationStatus: VerificationPending,
	},
}

// SeedTestData resets the database and populates it with demo accounts.
//
// Behavior:
//  1. Clears messages, conversations, matches, likes, profiles and accounts.
//  2. Creates one account + profile per demo user with a bcrypt password.
//  3. Records a mutual like between the first two users (match + conversation)
//     and a few one-sided likes.
//
// Compatible with MySQL, Postgres and SQLite.
func SeedTestData(db *gorm.DB) error {
	for _, table := range []string{"messages", "conversations", "matches", "user_likes", "profiles", "accounts"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	for _, p := range seedProfiles {
		p.IsProfileComplete = p.IsDiscoverable()
		account := Account{ID: p.ID, Email: p.Email, PasswordHash: string(hash)}
		if err := db.Create(&account).Error; err != nil {
			return fmt.Errorf("failed to seed account: %w", err)
		}
		if err := db.Create(&p).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}
	}
	log.Printf("Seeded %d profiles.", len(seedProfiles))

	a, b := seedProfiles[0].ID, seedProfiles[1].ID
	likes := []Decision{
		{LikerID: a, LikedID: b},
		{LikerID: b, LikedID: a},
		{LikerID: seedProfiles[2].ID, LikedID: b, IsSuperLike: true},
		{LikerID: seedProfiles[3].ID, LikedID: a},
	}
	for i := range likes {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&likes[i]).Error; err != nil {
			return fmt.Errorf("failed to seed like: %w", err)
		}
	}

	u1, u2 := CanonicalPair(a, b)
	match := Match{User1ID: u1, User2ID: u2}
	if err := db.Create(&match).Error; err != nil {
		return fmt.Errorf("failed to seed match: %w", err)
	}
	conv := Conversation{MatchID: match.ID, User1ID: u1, User2ID: u2}
	if err := db.Create(&conv).Error; err != nil {
		return fmt.Errorf("failed to seed conversation: %w", err)
	}

	now := time.Now().UTC()
	msgs := []Message{
		{ConversationID: conv.ID, SenderID: a, Content: "Hey! Saw you're into sketching too.", CreatedAt: now.Add(-2 * time.Minute), IsRead: true},
		{ConversationID: conv.ID, SenderID: b, Content: "Guilty. Coffee at the CCD this week?", CreatedAt: now.Add(-time.Minute)},
	}
	if err := db.Create(&msgs).Error; err != nil {
		return fmt.Errorf("failed to seed messages: %w", err)
	}
	if err := db.Model(&Conversation{}).Where("id = ?", conv.ID).UpdateColumn("updated_at", now.Add(-time.Minute)).Error; err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}

	log.Println("Seeded likes, one match and its conversation.")
	return nil
}
