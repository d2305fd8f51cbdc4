// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// Role represents who is signed in.
type Role string

const (
	// RoleAdmin is the single agency operator configured in the environment.
	RoleAdmin Role = "admin"
	// RoleClient is a business owner signed into the portal for one site.
	RoleClient Role = "client"
)
