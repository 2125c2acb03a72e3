// Package ui implements the terminal dashboard using bubbletea's Elm architecture.
//
// The screen has two panes built on bubbles/list:
//  1. [HabitsPane] : habits with their streaks; enter marks the selected habit done
//  2. [TodosPane] : the to-do list; enter toggles the selected item
//
// tab moves focus between panes, r reloads both from the store, and q quits. The quote of the day is
// shown above the panes when a quote source is wired. Store results arrive as [Msg] values and any
// error is rendered in the status line rather than ending the program.
package ui
